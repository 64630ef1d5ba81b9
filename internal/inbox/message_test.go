package inbox

import (
	"strings"
	"testing"
)

const plainMessage = "From: Maria Silva <maria@example.com.br>\r\n" +
	"To: suporte@example.com\r\n" +
	"Subject: Status do protocolo\r\n" +
	"Message-Id: <abc123@example.com.br>\r\n" +
	"Date: Mon, 06 Jan 2025 10:00:00 -0300\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Poderiam informar o status do meu protocolo 123456?\r\n"

const latin1Message = "From: joao@example.com\r\n" +
	"Subject: =?ISO-8859-1?Q?Atualiza=E7=E3o?=\r\n" +
	"Content-Type: text/plain; charset=iso-8859-1\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"Preciso de uma atualiza=E7=E3o do chamado.\r\n"

const multipartMessage = "From: ana@example.com\r\n" +
	"Subject: Anexo\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"XYZ\"\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><head><style>p{color:red}</style></head><body><p>Segue o <b>arquivo</b></p><p>solicitado.</p></body></html>\r\n" +
	"--XYZ\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"nota.pdf\"\r\n" +
	"\r\n" +
	"%PDF-1.4 fake\r\n" +
	"--XYZ--\r\n"

func TestParseMessagePlain(t *testing.T) {
	email, err := ParseMessage(strings.NewReader(plainMessage))
	if err != nil {
		t.Fatalf("ParseMessage() error: %v", err)
	}
	if email.From != "maria@example.com.br" || email.FromName != "Maria Silva" {
		t.Errorf("from = %q <%q>", email.FromName, email.From)
	}
	if email.Subject != "Status do protocolo" {
		t.Errorf("subject = %q", email.Subject)
	}
	if email.MessageID != "abc123@example.com.br" {
		t.Errorf("message id = %q", email.MessageID)
	}
	if email.ReceivedAt.IsZero() {
		t.Error("date should be parsed")
	}
	if !strings.Contains(email.Body, "protocolo 123456") {
		t.Errorf("body = %q", email.Body)
	}
}

func TestParseMessageDecodesCharset(t *testing.T) {
	email, err := ParseMessage(strings.NewReader(latin1Message))
	if err != nil {
		t.Fatalf("ParseMessage() error: %v", err)
	}
	if email.Subject != "Atualização" {
		t.Errorf("subject = %q, want %q", email.Subject, "Atualização")
	}
	if !strings.Contains(email.Body, "atualização do chamado") {
		t.Errorf("body = %q", email.Body)
	}
}

func TestParseMessageMultipartHTML(t *testing.T) {
	email, err := ParseMessage(strings.NewReader(multipartMessage))
	if err != nil {
		t.Fatalf("ParseMessage() error: %v", err)
	}
	if email.Body != "" {
		t.Errorf("plain body = %q, want empty", email.Body)
	}
	if email.HTMLBody == "" {
		t.Fatal("html body should be set")
	}
	if got, want := email.Text(), "Anexo\nSegue o arquivo solicitado."; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
	if strings.Contains(email.Text(), "PDF") {
		t.Error("attachments should not be read as text")
	}
}

func TestEmailText(t *testing.T) {
	tests := []struct {
		name  string
		email Email
		want  string
	}{
		{"subject and body", Email{Subject: "Oi", Body: " corpo \n"}, "Oi\ncorpo"},
		{"body only", Email{Body: "corpo"}, "corpo"},
		{"subject only", Email{Subject: "Feliz Natal"}, "Feliz Natal"},
		{"html fallback", Email{HTMLBody: "<p>olá</p>"}, "olá"},
		{"empty", Email{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.email.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		html string
		want string
	}{
		{"<p>Bom dia</p><p>equipe</p>", "Bom dia equipe"},
		{"<div>linha 1<br>linha 2</div>", "linha 1 linha 2"},
		{"<script>alert(1)</script><span>texto</span>", "texto"},
		{"sem marcação", "sem marcação"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := HTMLToText(tt.html); got != tt.want {
			t.Errorf("HTMLToText(%q) = %q, want %q", tt.html, got, tt.want)
		}
	}
}
