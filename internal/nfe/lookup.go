package nfe

// Match is the outcome of looking up one target element: either the element
// was found (with possibly empty text) or it was not.
type Match struct {
	Text  string
	Found bool
}

// NotFound is the Match for an element absent from the document.
var NotFound = Match{}

// Found returns a Match for an element whose leading text is text.
func Found(text string) Match {
	return Match{Text: text, Found: true}
}

// OrEmpty resolves the match to its text, or "" when the element is absent.
func (m Match) OrEmpty() string {
	if !m.Found {
		return ""
	}
	return m.Text
}

// target locates the first element named local in the NF-e namespace. When
// scope is set, the element must be nested (at any depth) under an element
// named scope.
type target struct {
	field string
	scope string
	local string
}

// targets is indexed in InvoiceRecord column order.
//
// xNome is matched globally for the issuer, so the issuer resolves to the
// first xNome anywhere in the document. NF-e emitters place emit before dest,
// but nothing enforces it.
var targets = [...]target{
	{field: "nota", local: "nNF"},
	{field: "emissor", local: "xNome"},
	{field: "cliente", scope: "dest", local: "xNome"},
	{field: "rua", scope: "dest", local: "xLgr"},
	{field: "numero", scope: "dest", local: "nro"},
	{field: "municipio", scope: "dest", local: "xMun"},
	{field: "peso_bruto", scope: "vol", local: "pesoB"},
}
