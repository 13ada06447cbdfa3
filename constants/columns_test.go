package constants

import (
	"reflect"
	"testing"
)

func TestColumnLabels(t *testing.T) {
	want := []string{"Nota", "Emissor", "Cliente", "Rua", "Numero", "Municipio", "Peso Bruto"}
	if got := ColumnLabels(); !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnLabels() = %v, want %v", got, want)
	}
}

func TestCanonicalizeColumn(t *testing.T) {
	cases := []struct {
		in   string
		want Column
		ok   bool
	}{
		{"Nota", ColumnNota, true},
		{"  peso bruto ", ColumnPesoBruto, true},
		{"peso_bruto", ColumnPesoBruto, true},
		{"Município", ColumnMunicipio, true},
		{"Destinatário", ColumnCliente, true},
		{"nNF", ColumnNota, true},
		{"valor", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := CanonicalizeColumn(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("CanonicalizeColumn(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestColumnIndex(t *testing.T) {
	if ColumnIndex(ColumnNota) != 0 || ColumnIndex(ColumnPesoBruto) != 6 || ColumnIndex("x") != -1 {
		t.Error("unexpected ColumnIndex result")
	}
}

func TestNormalizeExt(t *testing.T) {
	if NormalizeExt(".XML") != "xml" || NormalizeExt("xml") != "xml" {
		t.Error("NormalizeExt mismatch")
	}
	if _, ok := AllowedExtensions[NormalizeExt(".Xml")]; !ok {
		t.Error("xml should be allowed")
	}
}
