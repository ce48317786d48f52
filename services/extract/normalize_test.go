package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikeHTML(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"doctype", "<!DOCTYPE html><html><body>x</body></html>", true},
		{"html tag only", "junk <HTML> junk", true},
		{"table cell", "Importe:<td>$ 100.00</td>", true},
		{"div", "<div class=\"row\">Hola</div>", true},
		{"plain text", "Fecha de Operación: 22-Dic-2025", false},
		{"angle brackets in text", "monto < 100 y > 50", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeHTML(tt.body))
		})
	}
}

func TestCleanHTMLText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "tags and entities",
			in:   "<p>Importe:&nbsp;$ 1,000.00&nbsp;MN</p>",
			want: "Importe: $ 1,000.00 MN",
		},
		{
			name: "leading broken width residue",
			in:   "dth: 46%; text-align: left; Nombre del Ordenante: ACME SA",
			want: "Nombre del Ordenante: ACME SA",
		},
		{
			name: "inline css after tag removal",
			in:   "<td style=\"font-weight: bold;\">Hola</td> font-size: 12px; CLIENTE",
			want: "Hola CLIENTE",
		},
		{
			name: "bare percentage",
			in:   "ancho 46% listo",
			want: "ancho listo",
		},
		{
			name: "residual markup characters",
			in:   "a & b \"d\"",
			want: "a b d",
		},
		{
			name: "whitespace collapse",
			in:   "Hola\t\tEMPRESA\n\nUNO",
			want: "Hola EMPRESA UNO",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanHTMLText(tt.in))
		})
	}
}

func TestNormalizeBodyLeavesPlainTextUntouched(t *testing.T) {
	body := "Cuenta Destino:\t0123456789\tNombre del Ordenante:\tACME SA"
	assert.Equal(t, body, NormalizeBody(body))
}

func TestNormalizeBodyCleansHTML(t *testing.T) {
	body := "<html><body><td>Importe:</td><td>$ 500.00 MN</td></body></html>"
	assert.Equal(t, "Importe: $ 500.00 MN", NormalizeBody(body))
}
