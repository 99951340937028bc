package notify

import "html/template"

var submittedTpl = template.Must(template.New("submitted").Parse(`<!DOCTYPE html>
<html lang="en">
<body style="font-family:ui-sans-serif,system-ui,-apple-system,Segoe UI,Roboto,Helvetica Neue,Arial,sans-serif;background:#f8fafc;padding:20px">
<div style="max-width:560px;margin:0 auto;background:#fff;border:1px solid #f59e0b;border-radius:8px;padding:24px">
  <h2 style="margin-top:0;color:#111">New submission waiting for review</h2>
  <p><strong>{{.Title}}</strong></p>
  <p style="color:#555">by {{.Author}} &lt;{{.Email}}&gt;</p>
  <blockquote style="background:#f3f4f6;border-radius:6px;margin:16px 0;padding:12px 16px;color:#333">{{.Excerpt}}</blockquote>
  <p style="text-align:center;margin:28px 0">
    <a href="{{.ReviewURL}}" style="background:#f59e0b;color:#fff;padding:10px 18px;border-radius:4px;text-decoration:none;font-weight:600">Review post</a>
  </p>
  <p style="font-size:11px;color:#9ca3af;text-align:center">This message was sent automatically by {{.SiteName}}. &copy;{{.Year}}</p>
</div>
</body>
</html>`))

var decidedTpl = template.Must(template.New("decided").Parse(`<!DOCTYPE html>
<html lang="en">
<body style="font-family:ui-sans-serif,system-ui,-apple-system,Segoe UI,Roboto,Helvetica Neue,Arial,sans-serif;background:#f8fafc;padding:20px">
<div style="max-width:560px;margin:0 auto;background:#fff;border:1px solid #e5e7eb;border-radius:8px;padding:24px">
  <p>Hi {{.Author}},</p>
  {{if .Approved}}
  <p>Good news! Your post <strong>{{.Title}}</strong> has been approved and is now published on {{.SiteName}}.</p>
  <p style="text-align:center;margin:28px 0">
    <a href="{{.PostURL}}" style="background:#16a34a;color:#fff;padding:10px 18px;border-radius:4px;text-decoration:none;font-weight:600">Read it live</a>
  </p>
  {{else}}
  <p>Thank you for submitting <strong>{{.Title}}</strong>. After review, our moderators decided not to publish it.</p>
  {{end}}
  {{if .Notes}}
  <p>Notes from the moderator:</p>
  <blockquote style="background:#f3f4f6;border-radius:6px;margin:16px 0;padding:12px 16px;color:#333">{{.Notes}}</blockquote>
  {{end}}
  <p style="font-size:11px;color:#9ca3af;text-align:center">This message was sent automatically by {{.SiteName}}. Please do not reply. &copy;{{.Year}}</p>
</div>
</body>
</html>`))
