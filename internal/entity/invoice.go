package entity

// InvoiceRecord is the fixed set of fields surfaced from one NF-e document.
// Any field may be empty when the source element is absent.
type InvoiceRecord struct {
	Nota      string `json:"nota"`
	Emissor   string `json:"emissor"`
	Cliente   string `json:"cliente"`
	Rua       string `json:"rua"`
	Numero    string `json:"numero"`
	Municipio string `json:"municipio"`
	PesoBruto string `json:"peso_bruto"`
}

// RecordWidth is the number of fields in an InvoiceRecord.
const RecordWidth = 7

// Row returns the record's fields in column order. It always has RecordWidth entries.
func (r InvoiceRecord) Row() []string {
	return []string{r.Nota, r.Emissor, r.Cliente, r.Rua, r.Numero, r.Municipio, r.PesoBruto}
}

// IsEmpty reports whether every field is the empty string.
func (r InvoiceRecord) IsEmpty() bool {
	return r == InvoiceRecord{}
}

// RecordFromRow builds a record from cells in column order. Missing trailing
// cells become empty strings; cells past RecordWidth are ignored.
func RecordFromRow(cells []string) InvoiceRecord {
	var v [RecordWidth]string
	copy(v[:], cells)
	return InvoiceRecord{
		Nota:      v[0],
		Emissor:   v[1],
		Cliente:   v[2],
		Rua:       v[3],
		Numero:    v[4],
		Municipio: v[5],
		PesoBruto: v[6],
	}
}

// InvoiceTable is an ordered sequence of records, one per processed document.
type InvoiceTable []InvoiceRecord

// Rows returns the table as a grid of cells in column order.
func (t InvoiceTable) Rows() [][]string {
	out := make([][]string, len(t))
	for i, r := range t {
		out[i] = r.Row()
	}
	return out
}

// SummaryStats is a derived, read-only view over an InvoiceTable.
type SummaryStats struct {
	TotalNotas      int    `json:"total_notas"`
	UniqueEmissores int    `json:"unique_emissores"`
	UniqueClientes  int    `json:"unique_clientes"`
	TopNota         string `json:"top_nota"`
	TopCliente      string `json:"top_cliente"`
}
