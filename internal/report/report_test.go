package report

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

func TestRender(t *testing.T) {
	res := &entity.BatchResult{
		RunID:     uuid.New(),
		Documents: 3,
		Table: entity.InvoiceTable{
			{Nota: "1234", Emissor: "Emitente", Cliente: "Mercado Central", Rua: "Rua A", Numero: "42", Municipio: "Campinas", PesoBruto: "12.750"},
			{},
		},
		DuplicatesRemoved: 1,
		Summary: entity.SummaryStats{
			TotalNotas:      2,
			UniqueEmissores: 2,
			UniqueClientes:  2,
			TopNota:         "1234",
			TopCliente:      "Mercado Central",
		},
		Failures: []entity.DocumentFailure{{Document: "bad.xml", Position: 1, Error: "malformed document"}},
	}

	out := Render(res)
	for _, want := range []string{
		res.RunID.String(),
		"Nota", "Peso Bruto", "1234", "Mercado Central", "12.750",
		"Duplicates removed", "Distinct notas",
		"Errors (1)", "#2 bad.xml",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderWithoutFailures(t *testing.T) {
	out := Render(&entity.BatchResult{Table: entity.InvoiceTable{{Nota: "1"}}})
	if strings.Contains(out, "Errors") {
		t.Errorf("unexpected errors section:\n%s", out)
	}
	if !strings.Contains(out, `Top nota:`) {
		t.Errorf("missing summary:\n%s", out)
	}
	if Render(nil) != "" {
		t.Error("Render(nil) should be empty")
	}
}
