package registry

// Gateway-hosted product areas authenticate with a bearer token obtained from
// the /auth login endpoint and answer JSON.

// GAV (Global AssetView) asset inventory.
var gavEndpoints = []Descriptor{
	{
		Module:           "gav",
		Endpoint:         "asset_list",
		URLKind:          URLGateway,
		Path:             "/am/v1/assets/host/list",
		Methods:          []string{"POST"},
		QueryParams:      []string{"pageSize", "lastSeenAssetId", "assetId"},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseJSON,
		Paginated:        true,
		AuthMode:         AuthToken,
	},
	{
		Module:           "gav",
		Endpoint:         "asset_filter_list",
		URLKind:          URLGateway,
		Path:             "/am/v1/assets/host/filter/list",
		Methods:          []string{"POST"},
		QueryParams:      []string{"pageSize", "lastSeenAssetId", "includeFields", "excludeFields"},
		BodyParams:       []string{"filter"},
		BodyEncoding:     BodyJSON,
		ResponseEncoding: ResponseJSON,
		Paginated:        true,
		AuthMode:         AuthToken,
	},
	{
		Module:           "gav",
		Endpoint:         "asset_count",
		URLKind:          URLGateway,
		Path:             "/am/v1/assets/host/count",
		Methods:          []string{"POST"},
		BodyParams:       []string{"filter"},
		BodyEncoding:     BodyJSON,
		ResponseEncoding: ResponseJSON,
		Paginated:        false,
		AuthMode:         AuthToken,
	},
}

// Patch Management. Listings advance via the pageNumber query parameter.
var pmEndpoints = []Descriptor{
	{
		Module:           "pm",
		Endpoint:         "job_list",
		URLKind:          URLGateway,
		Path:             "/pm/v3/deploymentjobs/summary",
		Methods:          []string{"POST"},
		QueryParams:      []string{"pageNumber", "pageSize", "filter", "attributes", "sort"},
		BodyParams:       []string{"query", "havingQuery"},
		BodyEncoding:     BodyJSON,
		ResponseEncoding: ResponseJSON,
		Paginated:        true,
		AuthMode:         AuthToken,
	},
	{
		Module:           "pm",
		Endpoint:         "job_results",
		URLKind:          URLGateway,
		Path:             "/pm/v1/deploymentjob/{placeholder}/deploymentjobresult/summary",
		Methods:          []string{"POST"},
		QueryParams:      []string{"pageNumber", "pageSize", "sort"},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseJSON,
		Paginated:        true,
		AuthMode:         AuthToken,
	},
	{
		Module:           "pm",
		Endpoint:         "patch_list",
		URLKind:          URLGateway,
		Path:             "/pm/v3/patches",
		Methods:          []string{"GET"},
		QueryParams:      []string{"pageNumber", "pageSize", "query", "havingQuery", "attributes", "platform"},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseJSON,
		Paginated:        true,
		AuthMode:         AuthToken,
	},
}

// Container Security. Listings paginate through the Link response header
// carrying a paginationQuery cursor.
var csEndpoints = []Descriptor{
	{
		Module:           "cs",
		Endpoint:         "container_list",
		URLKind:          URLGateway,
		Path:             "/csapi/v1.3/containers/list",
		Methods:          []string{"GET"},
		QueryParams:      []string{"filter", "pageSize", "paginationQuery", "limit"},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseJSON,
		Paginated:        true,
		AuthMode:         AuthToken,
	},
	{
		Module:           "cs",
		Endpoint:         "image_list",
		URLKind:          URLGateway,
		Path:             "/csapi/v1.3/images/list",
		Methods:          []string{"GET"},
		QueryParams:      []string{"filter", "pageSize", "paginationQuery", "limit"},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseJSON,
		Paginated:        true,
		AuthMode:         AuthToken,
	},
	{
		Module:           "cs",
		Endpoint:         "container_details",
		URLKind:          URLGateway,
		Path:             "/csapi/v1.3/containers/{placeholder}",
		Methods:          []string{"GET"},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseJSON,
		Paginated:        false,
		AuthMode:         AuthToken,
	},
	{
		Module:           "cs",
		Endpoint:         "sensor_list",
		URLKind:          URLGateway,
		Path:             "/csapi/v1.3/sensors/list",
		Methods:          []string{"GET"},
		QueryParams:      []string{"filter", "pageSize", "paginationQuery", "limit"},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseJSON,
		Paginated:        true,
		AuthMode:         AuthToken,
	},
}

// CertView certificate inventory. Listings advance via pageNumber in a JSON
// body; some deployments answer with a searchAfter response header instead.
var certEndpoints = []Descriptor{
	{
		Module:           "cert",
		Endpoint:         "certificate_list",
		URLKind:          URLGateway,
		Path:             "/certview/v2/certificates",
		Methods:          []string{"POST"},
		QueryParams:      []string{"pageNumber", "pageSize"},
		BodyParams:       []string{"filter", "certificateResponseFields"},
		BodyEncoding:     BodyJSON,
		ResponseEncoding: ResponseJSON,
		Paginated:        true,
		AuthMode:         AuthToken,
	},
}
