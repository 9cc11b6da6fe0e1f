package ocorrencia

import (
	"testing"
	"time"
)

func TestFormatarUniqueID(t *testing.T) {
	cases := []struct {
		nome string
		seq  int64
		ano  int
		area string
		want string
	}{
		{"manutencao padded", 7, 2024, "manutenção", "007-24-MAN"},
		{"seguranca", 152, 2026, "seguranca", "152-26-SEG"},
		{"operacoes fora da tabela", 1, 2025, "operações", "001-25-OPE"},
		{"area desconhecida cai no geral", 42, 2026, "marketing", "042-26-GER"},
		{"sequencia acima de tres digitos", 1043, 2026, "limpeza", "1043-26-LIM"},
	}

	for _, tc := range cases {
		t.Run(tc.nome, func(t *testing.T) {
			got := FormatarUniqueID(tc.seq, tc.ano, tc.area)
			if got != tc.want {
				t.Fatalf("FormatarUniqueID(%d, %d, %q) = %q, esperado %q", tc.seq, tc.ano, tc.area, got, tc.want)
			}
		})
	}
}

func TestParseUniqueIDRoundTrip(t *testing.T) {
	id := FormatarUniqueID(7, 2024, "manutenção")

	seq, ano, abbr, err := ParseUniqueID(id)
	if err != nil {
		t.Fatalf("ParseUniqueID(%q): %v", id, err)
	}
	if seq != 7 || ano != 24 || abbr != "MAN" {
		t.Fatalf("ParseUniqueID(%q) = (%d, %d, %q)", id, seq, ano, abbr)
	}
}

func TestParseUniqueIDInvalido(t *testing.T) {
	invalidos := []string{"", "007-24", "abc-24-MAN", "007-xx-MAN", "007-24-M", "007-124-MAN"}

	for _, raw := range invalidos {
		if _, _, _, err := ParseUniqueID(raw); err == nil {
			t.Errorf("ParseUniqueID(%q): esperava erro", raw)
		}
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"aberto":       StatusAberta,
		"Abertas":      StatusAberta,
		"em andamento": StatusEmAndamento,
		"concluída":    StatusConcluida,
		"CONCLUIDAS":   StatusConcluida,
		"vencida":      StatusAtrasada,
		"":             StatusAberta,
		"aberta":       StatusAberta,
	}

	for raw, want := range cases {
		if got := NormalizeStatus(raw); got != want {
			t.Errorf("NormalizeStatus(%q) = %q, esperado %q", raw, got, want)
		}
	}
}

func TestNormalizeStatusIdempotente(t *testing.T) {
	entradas := []string{"aberto", "em andamento", "concluída", "atrasados", "aberta", "qualquer"}

	for _, raw := range entradas {
		uma := NormalizeStatus(raw)
		duas := NormalizeStatus(uma)
		if uma != duas {
			t.Errorf("NormalizeStatus não idempotente para %q: %q != %q", raw, uma, duas)
		}
	}
}

func TestIsValidStatus(t *testing.T) {
	if !IsValidStatus("Aberto") {
		t.Error("grafia legada deveria ser aceita após normalização")
	}
	if IsValidStatus("cancelada") {
		t.Error("status fora do vocabulário deveria ser rejeitado")
	}
}

func TestNormalizeComplexidade(t *testing.T) {
	cases := map[string]string{
		"Média":     ComplexidadeMedia,
		"média":     ComplexidadeMedia,
		" SIMPLES ": ComplexidadeSimples,
		"alta":      ComplexidadeAlta,
	}

	for raw, want := range cases {
		if got := NormalizeComplexidade(raw); got != want {
			t.Errorf("NormalizeComplexidade(%q) = %q, esperado %q", raw, got, want)
		}
	}

	if !IsValidComplexidade("Média") {
		t.Error("grafia acentuada deveria ser aceita após normalização")
	}
	if IsValidComplexidade("impossível") {
		t.Error("grau fora do vocabulário deveria ser rejeitado")
	}
}

func TestAbreviacaoArea(t *testing.T) {
	cases := map[string]string{
		"manutenção":     "MAN",
		"Manutencao":     "MAN",
		"segurança":      "SEG",
		"limpeza":        "LIM",
		"estacionamento": "EST",
		"administração":  "ADM",
		"operações":      "OPE",
		"operacoes":      "OPE",
		"financeiro":     "GER",
	}

	for area, want := range cases {
		if got := AbreviacaoArea(area); got != want {
			t.Errorf("AbreviacaoArea(%q) = %q, esperado %q", area, got, want)
		}
	}
}

func TestStatusEfetivo(t *testing.T) {
	agora := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	ontem := agora.Add(-24 * time.Hour)
	amanha := agora.Add(24 * time.Hour)

	cases := []struct {
		nome    string
		status  string
		previsa *time.Time
		want    string
	}{
		{"sem prazo mantém status", StatusAberta, nil, StatusAberta},
		{"prazo futuro mantém status", StatusEmAndamento, &amanha, StatusEmAndamento},
		{"prazo vencido deriva atrasada", StatusAberta, &ontem, StatusAtrasada},
		{"concluida nunca atrasa", StatusConcluida, &ontem, StatusConcluida},
		{"grafia legada concluída nunca atrasa", "concluída", &ontem, StatusConcluida},
	}

	for _, tc := range cases {
		t.Run(tc.nome, func(t *testing.T) {
			o := &Ocorrencia{Status: tc.status, PrevisaoConclusao: tc.previsa}
			if got := StatusEfetivo(o, agora); got != tc.want {
				t.Fatalf("StatusEfetivo = %q, esperado %q", got, tc.want)
			}
		})
	}
}
