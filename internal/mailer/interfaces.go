package mailer

type Service interface {
	SendPasswordResetEmail(toEmail, toName, resetURL string) error
}
