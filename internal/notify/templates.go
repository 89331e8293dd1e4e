package notify

import (
	"html/template"
	"strings"
)

// Operator emails mirror the reference notification layout: gradient
// header, user data table, optional UTM block. html/template handles
// escaping since name and email are visitor-supplied.

var paymentTmpl = template.Must(template.New("payment").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background-color: #f5f5f5;">
  <div style="max-width: 600px; margin: 20px auto; background-color: #ffffff; border-radius: 12px; overflow: hidden; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
    <div style="background: linear-gradient(135deg, #7c3aed 0%, #a855f7 100%); padding: 30px; text-align: center;">
      <h1 style="color: #ffffff; margin: 0; font-size: 24px;">🎯 Новая заявка на оплату SynthFlow</h1>
    </div>
    <div style="padding: 30px;">
      <div style="background: #f9fafb; border-radius: 8px; padding: 20px; margin-bottom: 20px;">
        <h2 style="color: #7c3aed; margin-top: 0; font-size: 18px;">Данные пользователя:</h2>
        <table style="width: 100%; border-collapse: collapse;">
          <tr>
            <td style="padding: 10px 0; color: #6b7280; width: 30%;">Имя:</td>
            <td style="padding: 10px 0; color: #1a1a1a; font-weight: 500;">{{.Name}}</td>
          </tr>
          <tr>
            <td style="padding: 10px 0; color: #6b7280;">Email:</td>
            <td style="padding: 10px 0;"><a href="mailto:{{.Email}}" style="color: #7c3aed; text-decoration: none; font-weight: 500;">{{.Email}}</a></td>
          </tr>
          <tr>
            <td style="padding: 10px 0; color: #6b7280;">Тариф:</td>
            <td style="padding: 10px 0; color: #1a1a1a; font-weight: 500;">{{.Plan}}</td>
          </tr>
          <tr>
            <td style="padding: 10px 0; color: #6b7280;">Время:</td>
            <td style="padding: 10px 0; color: #1a1a1a; font-weight: 500;">{{.Timestamp}}</td>
          </tr>
        </table>
      </div>
      {{template "utm" .UTM}}
      <div style="background: #dcfce7; border-radius: 8px; padding: 20px; text-align: center;">
        <p style="color: #14532d; margin: 0; font-weight: 600; font-size: 16px;">✅ Пользователь готов к оплате</p>
      </div>
    </div>
  </div>
</body>
</html>`))

var newsletterTmpl = template.Must(template.New("newsletter").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background-color: #f5f5f5;">
  <div style="max-width: 600px; margin: 20px auto; background-color: #ffffff; border-radius: 12px; overflow: hidden; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
    <div style="background: linear-gradient(135deg, #7c3aed 0%, #a855f7 100%); padding: 30px; text-align: center;">
      <h1 style="color: #ffffff; margin: 0; font-size: 24px;">📮 Новая подписка на рассылку SynthFlow</h1>
    </div>
    <div style="padding: 30px;">
      <div style="background: #f9fafb; border-radius: 8px; padding: 20px; margin-bottom: 20px;">
        <table style="width: 100%; border-collapse: collapse;">
          <tr>
            <td style="padding: 10px 0; color: #6b7280; width: 30%;">Email:</td>
            <td style="padding: 10px 0;"><a href="mailto:{{.Email}}" style="color: #7c3aed; text-decoration: none; font-weight: 500;">{{.Email}}</a></td>
          </tr>
          <tr>
            <td style="padding: 10px 0; color: #6b7280;">Источник:</td>
            <td style="padding: 10px 0; color: #1a1a1a; font-weight: 500;">{{.Source}}</td>
          </tr>
          <tr>
            <td style="padding: 10px 0; color: #6b7280;">Время:</td>
            <td style="padding: 10px 0; color: #1a1a1a; font-weight: 500;">{{.Timestamp}}</td>
          </tr>
        </table>
      </div>
      {{template "utm" .UTM}}
    </div>
  </div>
</body>
</html>`))

const utmBlock = `{{define "utm"}}{{if or .Source .Medium .Campaign}}<div style="background: #fef3c7; border-radius: 8px; padding: 20px; margin-bottom: 20px;">
  <h3 style="color: #92400e; margin-top: 0; font-size: 16px;">📊 UTM метки:</h3>
  <table style="width: 100%; border-collapse: collapse;">
    {{if .Source}}<tr>
      <td style="padding: 6px 0; color: #92400e; width: 30%;">Источник:</td>
      <td style="padding: 6px 0; color: #78350f; font-weight: 500;">{{.Source}}</td>
    </tr>{{end}}
    {{if .Medium}}<tr>
      <td style="padding: 6px 0; color: #92400e;">Канал:</td>
      <td style="padding: 6px 0; color: #78350f; font-weight: 500;">{{.Medium}}</td>
    </tr>{{end}}
    {{if .Campaign}}<tr>
      <td style="padding: 6px 0; color: #92400e;">Кампания:</td>
      <td style="padding: 6px 0; color: #78350f; font-weight: 500;">{{.Campaign}}</td>
    </tr>{{end}}
  </table>
</div>{{end}}{{end}}`

func init() {
	template.Must(paymentTmpl.Parse(utmBlock))
	template.Must(newsletterTmpl.Parse(utmBlock))
}

type paymentTmplData struct {
	Name      string
	Email     string
	Plan      string
	Timestamp string
	UTM       UTM
}

type newsletterTmplData struct {
	Email     string
	Source    string
	Timestamp string
	UTM       UTM
}

func paymentHTML(p Payload, name, plan, timestamp string) string {
	var b strings.Builder
	data := paymentTmplData{Name: name, Email: p.Email, Plan: plan, Timestamp: timestamp, UTM: p.UTM}
	if err := paymentTmpl.Execute(&b, data); err != nil {
		return ""
	}
	return b.String()
}

func newsletterHTML(p Payload, source, timestamp string) string {
	var b strings.Builder
	data := newsletterTmplData{Email: p.Email, Source: source, Timestamp: timestamp, UTM: p.UTM}
	if err := newsletterTmpl.Execute(&b, data); err != nil {
		return ""
	}
	return b.String()
}
