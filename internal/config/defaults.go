package config

import "github.com/williampepple1/legis-harvester/pkg/models"

// DefaultUserAgent identifies requests as a desktop browser. Some origins
// reject anything else.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/39.0.2171.95 Safari/537.36"

// DefaultHeaders returns the browser-like header set sent with every request
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language":           "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	}
}

const (
	planaltoBaseURL = "http://www4.planalto.gov.br/legislacao/portal-legis/legislacao-1/"
	alerjBaseURL    = "http://alerjln1.alerj.rj.gov.br"
)

// DefaultFamilies returns the built-in source families. Year tables for the
// per-year families are read from spans files since they change every year.
func DefaultFamilies() []FamilyConfig {
	planaltoFields := []string{"lei", "ementa", "ano", "inteiro_teor"}

	return []FamilyConfig{
		{
			Name:          "planalto-decretos",
			Label:         "decretos",
			Kind:          KindTable,
			Output:        "planalto_decretos.csv",
			Fields:        planaltoFields,
			Columns:       []string{"lei", "ementa"},
			YearField:     "ano",
			FullTextField: "inteiro_teor",
			LinkColumn:    0,
			Encoding:      "latin-1",
			BaseURL:       planaltoBaseURL,
			SpansFile:     "spans/planalto_decretos.txt",
		},
		{
			Name:          "planalto-leis-ordinarias",
			Label:         "leis ordinárias",
			Kind:          KindTable,
			Output:        "planalto_leis_ordinarias.csv",
			Fields:        planaltoFields,
			Columns:       []string{"lei", "ementa"},
			YearField:     "ano",
			FullTextField: "inteiro_teor",
			LinkColumn:    0,
			Encoding:      "latin-1",
			BaseURL:       planaltoBaseURL,
			SpansFile:     "spans/planalto_leis_ordinarias.txt",
		},
		{
			Name:          "planalto-leis-complementares",
			Label:         "leis complementares",
			Kind:          KindTable,
			Output:        "planalto_leis_complementares.csv",
			Fields:        planaltoFields,
			Columns:       []string{"lei", "ementa"},
			YearField:     "ano",
			FullTextField: "inteiro_teor",
			LinkColumn:    0,
			Encoding:      "latin-1",
			BaseURL:       planaltoBaseURL,
			Spans: []models.Span{
				{
					Label:    "todos-os-anos",
					Fragment: "leis-complementares-1/todas-as-leis-complementares-1",
					AllYears: true,
				},
			},
		},
		{
			Name:          "alerj-decretos",
			Label:         "decretos",
			Kind:          KindPaginated,
			Output:        "alerj_decretos.csv",
			Fields:        []string{"lei", "ano", "autor", "ementa", "inteiro_teor"},
			Columns:       []string{"lei", "ano", "autor", "ementa"},
			FullTextField: "inteiro_teor",
			LinkColumn:    -1,
			BaseURL:       alerjBaseURL,
			LinkBase:      alerjBaseURL,
			URLTemplate:   alerjBaseURL + "/contlei.nsf/{type}?OpenForm&Start={start}&Count={count}",
			PageType:      "DecretoInt",
			PageSize:      1000,
		},
	}
}
