package usecase

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"otp-auth/internal/data/entity"
	"otp-auth/internal/data/repository"
	"otp-auth/internal/provider"

	"go.uber.org/zap"
)

// DeliveryResult reports how a code went out. ChallengeID is set only when an
// external provider took over delivery, Verifier keys its strategy off it.
// FactorID is the phone's SMS factor, kept so a user created at verify time
// inherits it.
type DeliveryResult struct {
	Delivered   bool
	ChallengeID *string
	FactorID    *string
	Reason      string
}

// DeliveryChannel sends a code over one transport and never fails issuance:
// transport problems degrade to logging the code.
type DeliveryChannel interface {
	Send(ctx context.Context, id Identifier, code string, expiresAt time.Time) DeliveryResult
}

var emailSubject = template.Must(template.New("subject").Parse(`Your {{.AppName}} login code`))

var emailBody = template.Must(template.New("body").Parse(`<!doctype html>
<html>
<body style="font-family: sans-serif;">
	<p>Use the code below to sign in to {{.AppName}}.</p>
	<p style="font-size: 28px; letter-spacing: 6px;"><strong>{{.Code}}</strong></p>
	<p>The code expires in {{.ExpiryMinutes}} minutes. If you did not request it, you can ignore this e-mail.</p>
</body>
</html>`))

type emailData struct {
	AppName       string
	Code          string
	ExpiryMinutes int
}

type EmailChannel struct {
	mailer  provider.Mailer
	appName string
	log     *zap.Logger
	nowF    func() time.Time
}

func NewEmailChannel(mailer provider.Mailer, appName string, log *zap.Logger) *EmailChannel {
	if mailer == nil {
		mailer = provider.NopMailer{}
	}
	return &EmailChannel{
		mailer:  mailer,
		appName: appName,
		log:     log.With(zap.String("channel", "email")),
		nowF:    time.Now,
	}
}

func (c *EmailChannel) Send(ctx context.Context, id Identifier, code string, expiresAt time.Time) DeliveryResult {
	data := emailData{
		AppName:       c.appName,
		Code:          code,
		ExpiryMinutes: int(expiresAt.Sub(c.nowF()).Round(time.Minute).Minutes()),
	}

	var subject, body bytes.Buffer
	if err := emailSubject.Execute(&subject, data); err != nil {
		return fallback(c.log, id, code, expiresAt, "render subject: "+err.Error())
	}
	if err := emailBody.Execute(&body, data); err != nil {
		return fallback(c.log, id, code, expiresAt, "render body: "+err.Error())
	}

	if err := c.mailer.Send(ctx, id.Value, subject.String(), body.Bytes()); err != nil {
		return fallback(c.log, id, code, expiresAt, err.Error())
	}

	return DeliveryResult{Delivered: true}
}

type PhoneChannel struct {
	challenger provider.Challenger
	users      repository.UserRepository
	log        *zap.Logger
	nowF       func() time.Time
}

func NewPhoneChannel(challenger provider.Challenger, users repository.UserRepository, log *zap.Logger) *PhoneChannel {
	return &PhoneChannel{
		challenger: challenger,
		users:      users,
		log:        log.With(zap.String("channel", "phone")),
		nowF:       time.Now,
	}
}

// Send enrolls the phone once (factor cached on the user) and creates a challenge.
func (c *PhoneChannel) Send(ctx context.Context, id Identifier, code string, expiresAt time.Time) DeliveryResult {
	if c.challenger == nil {
		return fallback(c.log, id, code, expiresAt, provider.ErrNotConfigured.Error())
	}

	user, err := c.users.FindByPhone(ctx, id.Value)
	if err != nil {
		// enrollment still works without the cached factor
		c.log.Warn("Factor lookup failed", zap.Error(err), zap.String("identifier", id.Value))
	}

	factorID := ""
	if user != nil && user.WorkOSFactorID != nil {
		factorID = *user.WorkOSFactorID
	}

	if factorID == "" {
		enrolled := c.challenger.EnrollFactor(ctx, id.Value)
		if !enrolled.OK() {
			return fallback(c.log, id, code, expiresAt, "enroll factor: "+reason(enrolled.Err))
		}
		factorID = enrolled.FactorID
		c.cacheFactor(ctx, user, factorID)
	}

	challenge := c.challenger.CreateChallenge(ctx, factorID)
	if !challenge.OK() {
		result := fallback(c.log, id, code, expiresAt, "create challenge: "+reason(challenge.Err))
		result.FactorID = &factorID
		return result
	}

	challengeID := challenge.ChallengeID
	return DeliveryResult{Delivered: true, ChallengeID: &challengeID, FactorID: &factorID}
}

// cacheFactor stores the factor on an existing user. Phones without a user yet
// get it at verify time through the OTP record.
func (c *PhoneChannel) cacheFactor(ctx context.Context, user *entity.User, factorID string) {
	if user == nil {
		return
	}
	user.WorkOSFactorID = &factorID
	user.UpdatedAt = c.nowF()
	if err := c.users.Update(ctx, user); err != nil {
		c.log.Warn("Failed to cache factor id",
			zap.Error(err),
			zap.String("user_id", user.ID.String()),
		)
	}
}

// fallback logs the code so an operator can hand it over, then soft-fails.
func fallback(log *zap.Logger, id Identifier, code string, expiresAt time.Time, why string) DeliveryResult {
	log.Warn("OTP delivery fell back to log",
		zap.String("identifier", id.Value),
		zap.String("otp_code", code),
		zap.Time("expires_at", expiresAt),
		zap.String("reason", why),
	)
	return DeliveryResult{Delivered: false, Reason: why}
}

func reason(err error) string {
	if err == nil {
		return "empty provider response"
	}
	return err.Error()
}
