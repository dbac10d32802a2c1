// Package templates provides email template layout
package templates

import (
	"bytes"
	"html/template"
)

type EmailLayoutProps struct {
	Preheader  string
	Content    string
	FooterText string
}

// Internal template data structure with safe HTML typing
type emailTemplateData struct {
	Preheader  string
	Content    template.HTML // Mark as safe HTML to prevent escaping
	FooterText string
}

var emailLayoutTemplate = template.Must(template.New("emailLayout").Parse(`
<!doctype html>
<html lang="en">
  <head>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8">
    <title>Mayanov Tarot</title>
  </head>
  <body style="font-family: Helvetica, sans-serif; font-size: 16px; line-height: 1.4; background-color: #1b1530; margin: 0; padding: 0;">
    <span class="preheader" style="color: transparent; display: none; height: 0; max-height: 0; opacity: 0; overflow: hidden; visibility: hidden; width: 0;">{{.Preheader}}</span>
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="width: 100%;" width="100%">
      <tr>
        <td style="max-width: 600px; padding: 24px; margin: 0 auto;" width="600" valign="top">
          <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="background: #ffffff; border-radius: 16px; width: 100%;" width="100%">
            <tr>
              <td style="padding: 24px; color: #1b1530;" valign="top">
                {{.Content}}
              </td>
            </tr>
          </table>
          <p style="color: #c9b8f0; font-size: 14px; text-align: center; padding-top: 16px;">{{.FooterText}}</p>
        </td>
      </tr>
    </table>
  </body>
</html>`))

var adminWelcomeTemplate = template.Must(template.New("adminWelcome").Parse(`
<h1 style="font-size: 22px; margin: 0 0 16px;">Welcome to the Mayanov Tarot dashboard</h1>
<p>{{.AddedBy}} gave <strong>{{.Email}}</strong> access to the admin analytics dashboard.</p>
<p>Sign in with this email address and the password you were given.</p>
{{if .DashboardURL}}<p><a href="{{.DashboardURL}}" style="display: inline-block; padding: 10px 18px; background: #6b3fd4; color: #ffffff; border-radius: 8px; text-decoration: none;">Open the dashboard</a></p>{{end}}
`))

// AdminWelcomeProps describes the welcome mail sent to a newly added admin.
type AdminWelcomeProps struct {
	Email        string
	AddedBy      string
	DashboardURL string
}

// GetEmailLayout wraps content in the branded layout.
func GetEmailLayout(props EmailLayoutProps) (string, error) {
	footerText := props.FooterText
	if footerText == "" {
		footerText = "Mayanov Tarot · tarot readings in Indonesian and English"
	}

	templateData := emailTemplateData{
		Preheader:  props.Preheader,
		Content:    template.HTML(props.Content), // Convert to safe HTML type
		FooterText: footerText,
	}

	var buf bytes.Buffer
	if err := emailLayoutTemplate.Execute(&buf, templateData); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// GetAdminWelcomeContent renders the inner content of the welcome mail.
func GetAdminWelcomeContent(props AdminWelcomeProps) (string, error) {
	if props.AddedBy == "" {
		props.AddedBy = "An administrator"
	}
	var buf bytes.Buffer
	if err := adminWelcomeTemplate.Execute(&buf, props); err != nil {
		return "", err
	}
	return buf.String(), nil
}
