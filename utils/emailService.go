package utils

import (
	"fmt"
	"lms/config"
	"log"
	"net/http"
	"net/smtp"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	appName          = "Learnwise Academy"
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendEmail delivers an HTML email through the configured provider
func SendEmail(to []string, subject string, htmlBody string) error {
	if config.AppConfig.EmailProvider == "sendgrid" {
		return sendViaSendgrid(to, subject, htmlBody)
	}
	return sendViaSMTP(to, subject, htmlBody)
}

func sendViaSMTP(to []string, subject string, htmlBody string) error {
	smtpHost := config.AppConfig.SMTPHost
	smtpPort := fmt.Sprintf("%d", config.AppConfig.SMTPPort)

	from := config.AppConfig.EmailSender
	password := config.AppConfig.Password

	// MIME basics
	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: %s <%s>\r\n", appName, from)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += htmlBody

	auth := smtp.PlainAuth("", from, password, smtpHost)

	log.Printf("[EMAIL] Sending %q to %v via smtp", subject, to)
	if err := smtp.SendMail(smtpHost+":"+smtpPort, auth, from, to, []byte(msg)); err != nil {
		log.Printf("[EMAIL] Error sending email: %v", err)
		return err
	}
	return nil
}

func sendViaSendgrid(to []string, subject string, htmlBody string) error {
	p := sgmail.NewPersonalization()
	p.Subject = subject
	for _, addr := range to {
		p.AddTos(sgmail.NewEmail("", addr))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(appName, config.AppConfig.EmailSender))
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/html", htmlBody))

	req := sendgrid.GetRequest(config.AppConfig.SendgridAPIKey, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	log.Printf("[EMAIL] Sending %q to %v via sendgrid", subject, to)
	res, err := sendgrid.API(req)
	if err != nil {
		log.Printf("[EMAIL] Error sending email: %v", err)
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		log.Printf("[EMAIL] Sendgrid rejected email: %d %s", res.StatusCode, res.Body)
		return fmt.Errorf("sendgrid: status %d", res.StatusCode)
	}
	return nil
}

func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #123C69; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #123C69; line-height: 1.6; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #AC3B61; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>%s</h1></div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">&copy; 2026 %s. All rights reserved.</div>
		</div>
	</body>
	</html>
	`, strings.ToUpper(appName), title, bodyContent, appName)
}

// EnrollmentEmail is sent when a user enrolls in a course
func EnrollmentEmail(userName, courseName string) (string, string) {
	subject := "Course Enrollment Confirmation: " + courseName
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>You have successfully enrolled in <strong>%s</strong>.</p>
		<p>Modules unlock one after another. Watch at least 80%% of every lesson and pass the module quiz to move on.</p>
	`, userName, courseName)
	return subject, getEmailTemplate("Enrollment Successful", body)
}

// CourseCompletedEmail congratulates a learner who finished every module
func CourseCompletedEmail(userName, courseName string) (string, string) {
	subject := "You completed " + courseName
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Congratulations on completing <strong>%s</strong>!</p>
		<div class="info-box">You can now request your certificate from the course page.</div>
	`, userName, courseName)
	return subject, getEmailTemplate("Course Completed", body)
}

// CertificateIssuedEmail carries the number of an approved certificate
func CertificateIssuedEmail(userName, courseName, certificateNumber string) (string, string) {
	subject := "Course Completion Certificate: " + courseName
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your certificate for <strong>%s</strong> has been approved.</p>
		<div class="info-box">Certificate Number: <strong>%s</strong></div>
		<p>You can use this number for verification purposes.</p>
	`, userName, courseName, certificateNumber)
	return subject, getEmailTemplate("Certificate of Completion", body)
}

// CertificateRejectedEmail explains why a certificate request was declined
func CertificateRejectedEmail(userName, courseName, reason string) (string, string) {
	subject := "Certificate Request Update: " + courseName
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your certificate request for <strong>%s</strong> was not approved.</p>
		<div style="color: #dc3545; font-weight: bold;">Reason: %s</div>
	`, userName, courseName, reason)
	return subject, getEmailTemplate("Certificate Request Rejected", body)
}

// SendEmailAsync fires SendEmail in the background and logs failures
func SendEmailAsync(to string, subject, htmlBody string) {
	go func() {
		if err := SendEmail([]string{to}, subject, htmlBody); err != nil {
			log.Printf("[EMAIL] Delivery to %s failed: %v", to, err)
		}
	}()
}
