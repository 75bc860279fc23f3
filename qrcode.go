package main

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// EscapeWifiString handles the special character escaping for SSID and Password.
func EscapeWifiString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`;`, `\;`,
		`,`, `\,`,
		`:`, `\:`,
		`"`, `\"`,
	)
	return r.Replace(s)
}

// GenerateWifiQRCode builds the WIFI: connection string for an iwd security
// type (open, psk, 8021x, wep) and returns a terminal-friendly QR code.
func GenerateWifiQRCode(ssid, password, security string, isHidden bool) (string, error) {
	var b strings.Builder

	b.WriteString("WIFI:S:")
	b.WriteString(EscapeWifiString(ssid))
	b.WriteString(";")

	switch security {
	case "open":
		b.WriteString("T:nopass;")
	case "wep":
		b.WriteString("T:WEP;P:")
		b.WriteString(EscapeWifiString(password))
		b.WriteString(";")
	default:
		// psk and 8021x both present as WPA to readers.
		b.WriteString("T:WPA;P:")
		b.WriteString(EscapeWifiString(password))
		b.WriteString(";")
	}

	if isHidden {
		b.WriteString("H:true;")
	}
	b.WriteString(";;")

	q, err := qrcode.New(b.String(), qrcode.Medium)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}
