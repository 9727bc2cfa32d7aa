package services

import (
	"bytes"
	"html/template"
	"time"
)

const otpEmailSubject = "Your verification code"

var otpEmailTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <p>Use the code below to confirm your request.</p>
  <p style="font-size: 24px; font-weight: bold; letter-spacing: 4px;">{{.Code}}</p>
  <p>The code expires in {{.Minutes}} minutes. If you did not request this change, contact support.</p>
</body>
</html>`))

func renderOTPEmail(code string, ttl time.Duration) (string, string, error) {
	var buf bytes.Buffer
	err := otpEmailTemplate.Execute(&buf, struct {
		Code    string
		Minutes int
	}{Code: code, Minutes: int(ttl.Minutes())})
	if err != nil {
		return "", "", err
	}
	return otpEmailSubject, buf.String(), nil
}
