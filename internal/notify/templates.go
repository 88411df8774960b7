package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"circles-service/internal/models"
)

type invitationEmailData struct {
	SiteName    string
	GroupName   string
	InviterName string
	InviteURL   string
	ExpiresOn   string
}

var invitationHTML = template.Must(template.New("invitation").Parse(invitationHTMLTemplate))

func newInvitationEmailData(siteName string, email models.InvitationEmail) invitationEmailData {
	data := invitationEmailData{
		SiteName:    siteName,
		GroupName:   orDefault(email.GroupName, "a group"),
		InviterName: orDefault(email.InviterName, "Someone"),
		InviteURL:   email.InviteURL,
	}
	if !email.ExpiresAt.IsZero() {
		data.ExpiresOn = email.ExpiresAt.UTC().Format("January 2, 2006")
	}
	return data
}

func invitationSubject(data invitationEmailData) string {
	return fmt.Sprintf("%s invited you to join %s on %s", data.InviterName, data.GroupName, data.SiteName)
}

func buildInvitationText(data invitationEmailData) string {
	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("%s invited you to join %s on %s.\n\n", data.InviterName, data.GroupName, data.SiteName))
	buf.WriteString("Accept the invitation here:\n")
	buf.WriteString(data.InviteURL + "\n\n")
	if data.ExpiresOn != "" {
		buf.WriteString(fmt.Sprintf("This invitation expires on %s.\n\n", data.ExpiresOn))
	}
	buf.WriteString("If you were not expecting this invitation, you can ignore this email.\n")
	return buf.String()
}

func buildInvitationHTML(data invitationEmailData) (string, error) {
	var buf bytes.Buffer
	if err := invitationHTML.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render invitation email: %w", err)
	}
	return buf.String(), nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

const invitationHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Group invitation</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #be123c;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 24px; font-size: 16px; color: #374151; line-height: 1.5;">
                <strong>{{.InviterName}}</strong> invited you to join <strong>{{.GroupName}}</strong>.
              </p>
              <table role="presentation" width="100%" cellspacing="0" cellpadding="0">
                <tr>
                  <td align="center">
                    <a href="{{.InviteURL}}" style="display: inline-block; padding: 14px 32px; background-color: #be123c; color: #ffffff; text-decoration: none; font-size: 16px; font-weight: 500; border-radius: 6px;">
                      Accept invitation
                    </a>
                  </td>
                </tr>
              </table>
              {{if .ExpiresOn}}
              <p style="margin: 24px 0 0; font-size: 13px; color: #9ca3af; text-align: center;">
                This invitation expires on {{.ExpiresOn}}.
              </p>
              {{end}}
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                If you were not expecting this invitation, you can ignore this email.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
