package registry

// QPS (Qualys Portal Service) endpoints take a pre-formed ServiceRequest XML
// document as the request body and answer ServiceResponse XML. They live on
// the classic API host with HTTP Basic auth.

// WAS (Web Application Scanning).
var wasEndpoints = []Descriptor{
	{
		Module:           "was",
		Endpoint:         "search_webapps",
		URLKind:          URLAPI,
		Path:             "/qps/rest/3.0/search/was/webapp",
		Methods:          []string{"POST"},
		BodyParams:       []string{XMLBodyParam},
		BodyEncoding:     BodyXMLEmbedded,
		ResponseEncoding: ResponseXML,
		Paginated:        false,
		AuthMode:         AuthBasic,
	},
	{
		Module:           "was",
		Endpoint:         "get_webapp",
		URLKind:          URLAPI,
		Path:             "/qps/rest/3.0/get/was/webapp/{placeholder}",
		Methods:          []string{"GET"},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseXML,
		Paginated:        false,
		AuthMode:         AuthBasic,
	},
	{
		Module:           "was",
		Endpoint:         "search_findings",
		URLKind:          URLAPI,
		Path:             "/qps/rest/3.0/search/was/finding",
		Methods:          []string{"POST"},
		BodyParams:       []string{XMLBodyParam},
		BodyEncoding:     BodyXMLEmbedded,
		ResponseEncoding: ResponseXML,
		Paginated:        false,
		AuthMode:         AuthBasic,
	},
}

// Asset tagging.
var tagEndpoints = []Descriptor{
	{
		Module:           "tag",
		Endpoint:         "search_tags",
		URLKind:          URLAPI,
		Path:             "/qps/rest/2.0/search/am/tag",
		Methods:          []string{"POST"},
		BodyParams:       []string{XMLBodyParam},
		BodyEncoding:     BodyXMLEmbedded,
		ResponseEncoding: ResponseXML,
		Paginated:        false,
		AuthMode:         AuthBasic,
	},
	{
		Module:           "tag",
		Endpoint:         "create_tag",
		URLKind:          URLAPI,
		Path:             "/qps/rest/2.0/create/am/tag",
		Methods:          []string{"POST"},
		BodyParams:       []string{XMLBodyParam},
		BodyEncoding:     BodyXMLEmbedded,
		ResponseEncoding: ResponseXML,
		Paginated:        false,
		AuthMode:         AuthBasic,
	},
	{
		Module:           "tag",
		Endpoint:         "update_tag",
		URLKind:          URLAPI,
		Path:             "/qps/rest/2.0/update/am/tag/{placeholder}",
		Methods:          []string{"POST"},
		BodyParams:       []string{XMLBodyParam},
		BodyEncoding:     BodyXMLEmbedded,
		ResponseEncoding: ResponseXML,
		Paginated:        false,
		AuthMode:         AuthBasic,
	},
	{
		Module:           "tag",
		Endpoint:         "delete_tag",
		URLKind:          URLAPI,
		Path:             "/qps/rest/2.0/delete/am/tag/{placeholder}",
		Methods:          []string{"POST"},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseXML,
		Paginated:        false,
		AuthMode:         AuthBasic,
	},
}

// User administration and the gateway login endpoint.
var adminEndpoints = []Descriptor{
	{
		Module:           "admin",
		Endpoint:         "user_list",
		URLKind:          URLAPI,
		Path:             "/msp/user_list.php",
		Methods:          []string{"GET", "POST"},
		QueryParams:      []string{"external_id_contents", "external_id_assigned"},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseXML,
		Paginated:        false,
		AuthMode:         AuthBasic,
	},
	{
		Module:           "auth",
		Endpoint:         "login",
		URLKind:          URLGateway,
		Path:             "/auth",
		Methods:          []string{"POST"},
		BodyParams:       []string{"username", "password", "token", "permissions"},
		BodyEncoding:     BodyForm,
		ResponseEncoding: ResponseJSON,
		Paginated:        false,
		AuthMode:         AuthBasic,
	},
}
