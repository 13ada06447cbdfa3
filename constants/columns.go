package constants

import (
	"strings"
)

type Column string

const (
	ColumnNota      Column = "Nota"
	ColumnEmissor   Column = "Emissor"
	ColumnCliente   Column = "Cliente"
	ColumnRua       Column = "Rua"
	ColumnNumero    Column = "Numero"
	ColumnMunicipio Column = "Municipio"
	ColumnPesoBruto Column = "Peso Bruto"
)

// Columns is the fixed column order of the invoice table and its exports.
var Columns = []Column{
	ColumnNota,
	ColumnEmissor,
	ColumnCliente,
	ColumnRua,
	ColumnNumero,
	ColumnMunicipio,
	ColumnPesoBruto,
}

func ColumnLabels() []string {
	result := make([]string, len(Columns))
	for i, col := range Columns {
		result[i] = string(col)
	}
	return result
}

// ColumnIndex returns the position of col in Columns, or -1.
func ColumnIndex(col Column) int {
	for i, c := range Columns {
		if c == col {
			return i
		}
	}
	return -1
}

func CanonicalizeColumn(input string) (Column, bool) {
	if input == "" {
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]Column{
		"nnf":          ColumnNota,
		"nota fiscal":  ColumnNota,
		"emitente":     ColumnEmissor,
		"destinatario": ColumnCliente,
		"destinatário": ColumnCliente,
		"número":       ColumnNumero,
		"município":    ColumnMunicipio,
		"peso_bruto":   ColumnPesoBruto,
		"pesobruto":    ColumnPesoBruto,
		"pesob":        ColumnPesoBruto,
	}

	if col, ok := synonyms[normalized]; ok {
		return col, true
	}

	for _, col := range Columns {
		if normalized == strings.ToLower(string(col)) {
			return col, true
		}
	}

	return "", false
}
