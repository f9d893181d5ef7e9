package email

import "html/template"

var templates = template.Must(template.New("email").Parse(`
{{define "verify_email"}}<p>Hi {{.Name}},</p>
<p>Confirm your email address to finish setting up your account:</p>
<p><a href="{{.Link}}">Verify email</a></p>{{end}}

{{define "password_reset"}}<p>Hi {{.Name}},</p>
<p>Someone asked to reset your password. The link below works for one hour.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>If this wasn't you, ignore this email.</p>{{end}}

{{define "application_received"}}<p>Hi {{.Name}},</p>
<p>{{.Applicant}} applied for <strong>{{.ListingTitle}}</strong>.</p>
<p><a href="{{.Link}}">Review the application</a></p>{{end}}

{{define "new_message"}}<p>Hi {{.Name}},</p>
<p>You have a new message about <strong>{{.ListingTitle}}</strong>:</p>
<blockquote>{{.Body}}</blockquote>
<p><a href="{{.Link}}">Reply</a></p>{{end}}

{{define "listing_published"}}<p>Hi {{.Name}},</p>
<p>Payment received. <strong>{{.ListingTitle}}</strong> is now live until {{.Until}}.</p>
<p><a href="{{.Link}}">View your listing</a></p>{{end}}
`))

// Data is the union of fields the email templates read.
type Data struct {
	Name         string
	Link         string
	ListingTitle string
	Applicant    string
	Body         string
	Until        string
}
