package textnorm

import (
	"strings"
	"testing"
)

func TestNormalizeEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t", "123 456", "o de um"} {
		if got := Normalize(in); got != "" {
			t.Errorf("Normalize(%q) = %q, want empty", in, got)
		}
	}
}

func TestNormalizeDropsNoise(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		banned  []string
		minToks int
	}{
		{
			name:    "urls",
			in:      "veja https://exemplo.com/caminho e www.site.com.br agora",
			banned:  []string{"http", "www", "exempl", "site", "caminh"},
			minToks: 1,
		},
		{
			name:    "digits and punctuation",
			in:      "Protocolo #123456!!! (urgente)",
			banned:  []string{"123456", "#", "!", "(", ")"},
			minToks: 2,
		},
		{
			name:    "underscores split words",
			in:      "erro_sistema",
			banned:  []string{"_"},
			minToks: 2,
		},
		{
			name:    "stopwords",
			in:      "não estou com a senha do meu cadastro",
			banned:  []string{"não", "estou", "com", "meu"},
			minToks: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			for _, b := range tt.banned {
				if strings.Contains(got, b) {
					t.Errorf("Normalize(%q) = %q, should not contain %q", tt.in, got, b)
				}
			}
			if n := len(strings.Fields(got)); n < tt.minToks {
				t.Errorf("Normalize(%q) = %q, want at least %d tokens", tt.in, got, tt.minToks)
			}
		})
	}
}

func TestNormalizeShortTokens(t *testing.T) {
	got := Normalize("ok vc xp cadastro")
	if got != Stem("cadastro") {
		t.Errorf("got %q, want only the stem of cadastro", got)
	}
}

func TestNormalizeCaseAndInflection(t *testing.T) {
	if a, b := Normalize("PROTOCOLO"), Normalize("protocolos"); a != b {
		t.Errorf("inflections should share a stem: %q vs %q", a, b)
	}
	if got, want := Normalize("Muito Obrigado"), Stem("obrigado"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalizeComposesAccents(t *testing.T) {
	decomposed := "atualizac\u0327a\u0303o"
	composed := "atualiza\u00e7\u00e3o"
	if a, b := Normalize(decomposed), Normalize(composed); a != b {
		t.Errorf("NFD and NFC input should normalize alike: %q vs %q", a, b)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"poderiam informar o status do meu protocolo 123456?",
		"segue dúvida sobre o acesso ao sistema, não estou conseguindo logar",
		"preciso de atualização do caso em aberto",
		"em anexo envio o comprovante para análise",
		"feliz natal e um ótimo ano novo",
		"parabéns pelo excelente trabalho",
		"mensagem sem necessidade de ação",
		"Prezados, gostaria de saber o andamento da solicitação. Att, João",
		"https://exemplo.com bloqueio indisponível ERRO!!! senha_expirada",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestStemFixedPoint(t *testing.T) {
	for _, w := range []string{"atendimento", "correções", "informações", "anexado", "agradecendo"} {
		s := Stem(w)
		if Stem(s) != s {
			t.Errorf("Stem(%q) = %q is not a fixed point", w, s)
		}
	}
}

func TestIsStopword(t *testing.T) {
	for _, w := range []string{"de", "não", "você", "muito", "estávamos"} {
		if !IsStopword(w) {
			t.Errorf("%q should be a stopword", w)
		}
	}
	for _, w := range []string{"protocolo", "senha", "obrigado"} {
		if IsStopword(w) {
			t.Errorf("%q should not be a stopword", w)
		}
	}
}
