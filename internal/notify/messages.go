package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
)

const (
	KindActivation      = "activation"
	KindRequestReceived = "request_received"
	KindRequestAccepted = "request_accepted"
	KindRequestRejected = "request_rejected"
)

// Message is one email. Body is HTML.
type Message struct {
	To      string
	Subject string
	Body    string
	Kind    string
}

// html/template escapes every interpolated value, including the free-text
// request message.
var templates = template.Must(template.New("").Parse(`
{{define "activation"}}<p>Hi {{.Name}},</p>
<p>Thanks for signing up to Recircular. Follow this link to activate your account:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>The link expires in {{.TTL}}. If this wasn't you, ignore this email.</p>{{end}}

{{define "request_received"}}<p>You received a new request for your offer <strong>{{.OfferRef}}</strong>.</p>
<p><strong>Message from the requester:</strong></p>
<p>{{.Message}}</p>
<p>To review and accept it, go to:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p><small>For privacy, the requester's details are only revealed once you accept.</small></p>{{end}}

{{define "request_accepted"}}<p>Hi {{.RequesterName}},</p>
<p>Your request for the offer by <strong>{{.OwnerName}}</strong> was <strong>accepted</strong>.</p>
<p>Agree on the exchange by contacting <strong>{{.OwnerEmail}}</strong>.</p>
<p>Offer details:</p>
<ul>{{range .Items}}<li>{{.Quantity}} × ${{.Denomination}}</li>{{end}}</ul>{{end}}

{{define "request_rejected"}}<p>Thanks for your interest.</p>
<p>Your request for an offer was not selected.</p>
<p>Keep looking for other offers near you.</p>{{end}}
`))

func render(name string, data any) string {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		// Templates are static and parsed at init; a failure here is a programming error.
		panic(fmt.Sprintf("render %s: %v", name, err))
	}
	return buf.String()
}

func Activation(to, name, link, ttl string) Message {
	return Message{
		To:      to,
		Subject: "Activate your Recircular account",
		Kind:    KindActivation,
		Body: render(KindActivation, struct {
			Name, Link, TTL string
		}{name, link, ttl}),
	}
}

// RequestReceived goes to the offer owner and never names the requester.
func RequestReceived(ownerEmail, offerID, message, frontendURL string) Message {
	if strings.TrimSpace(message) == "" {
		message = "(no message)"
	}
	return Message{
		To:      ownerEmail,
		Subject: "New request received - Recircular",
		Kind:    KindRequestReceived,
		Body: render(KindRequestReceived, struct {
			OfferRef, Message, Link string
		}{ShortRef(offerID), message, strings.TrimRight(frontendURL, "/") + "/my-offers"}),
	}
}

// RequestAccepted goes to the winning requester and reveals the owner's contact.
func RequestAccepted(to, requesterName, ownerName, ownerEmail string, items []domain.Item) Message {
	return Message{
		To:      to,
		Subject: "Your request was accepted - Recircular",
		Kind:    KindRequestAccepted,
		Body: render(KindRequestAccepted, struct {
			RequesterName, OwnerName, OwnerEmail string
			Items                                []domain.Item
		}{requesterName, ownerName, ownerEmail, items}),
	}
}

func RequestRejected(to string) Message {
	return Message{
		To:      to,
		Subject: "Request not selected - Recircular",
		Kind:    KindRequestRejected,
		Body:    render(KindRequestRejected, nil),
	}
}

// ShortRef is the last six characters of an id.
func ShortRef(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}
