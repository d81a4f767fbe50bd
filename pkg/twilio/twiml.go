package twilio

import (
	"encoding/xml"
	"fmt"
)

// TwiML builders for the three responses the service produces: the
// inbound-call redirect into a media stream, the pre-transfer
// announcement, and the transfer dial.

type voiceResponse struct {
	XMLName xml.Name  `xml:"Response"`
	Say     string    `xml:"Say,omitempty"`
	Connect *connect  `xml:"Connect,omitempty"`
	Dial    string    `xml:"Dial,omitempty"`
}

type connect struct {
	Stream stream `xml:"Stream"`
}

type stream struct {
	URL string `xml:"url,attr"`
}

// StreamResponse returns TwiML that greets the caller and connects the
// call's audio to the given WebSocket URL.
func StreamResponse(greeting, wsURL string) string {
	return render(voiceResponse{
		Say:     greeting,
		Connect: &connect{Stream: stream{URL: wsURL}},
	})
}

// SayResponse returns TwiML that speaks a short announcement.
func SayResponse(text string) string {
	return render(voiceResponse{Say: text})
}

// DialResponse returns TwiML that redirects the call to another number.
func DialResponse(number string) string {
	return render(voiceResponse{Dial: number})
}

func render(v voiceResponse) string {
	out, err := xml.Marshal(v)
	if err != nil {
		// Marshalling a fixed struct cannot fail at runtime; keep the
		// signature convenient for handlers.
		return "<Response></Response>"
	}
	return xml.Header + string(out)
}

// WebSocketURL joins the public base URL with the per-caller path.
func WebSocketURL(base, callerNumber string) string {
	return fmt.Sprintf("%s/ws/%s", base, callerNumber)
}
