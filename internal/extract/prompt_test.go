package extract

import (
	"strings"
	"testing"
)

func TestWeekday(t *testing.T) {
	var cases = []struct {
		date string
		want string
	}{
		{"03/10/2025", "Lunes"},
		{"03/11/2025", "Martes"},
		{"03/16/2025", "Domingo"},
		{"12/25/2024", "Miércoles"},
		{"not a date", UnknownDay},
		{"", UnknownDay},
		{"31/12/2024", UnknownDay}, // DD/MM order is rejected
	}
	for _, tc := range cases {
		if got := Weekday(tc.date); got != tc.want {
			t.Fatalf("Weekday(%q)=%q want %q", tc.date, got, tc.want)
		}
	}
}

func TestBuildPromptEmbedsContext(t *testing.T) {
	prompt := BuildPrompt("texto de la denuncia", "03/10/2025", "Lunes", "")
	for _, want := range []string{
		"texto de la denuncia",
		"Fecha del reporte: 03/10/2025 (Día: Lunes)",
		`"sintesis"`,
		`"es_anonima"`,
		"LUNES",
		"DOMINGO",
		"ÚNICAMENTE con el JSON",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptExtraRules(t *testing.T) {
	prompt := BuildPrompt("texto", "03/10/2025", "Lunes", "REGLA EXTRA: usa mayúsculas.")
	if !strings.Contains(prompt, "REGLA EXTRA: usa mayúsculas.") {
		t.Fatalf("extra rules not appended")
	}
}
