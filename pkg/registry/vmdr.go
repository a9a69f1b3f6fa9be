package registry

// VMDR endpoints live on the classic API host, authenticate with HTTP Basic,
// and answer XML. Listings paginate through the WARNING/URL id_min cursor.
var vmdrEndpoints = []Descriptor{
	{
		Module:   "vmdr",
		Endpoint: "host_list",
		URLKind:  URLAPI,
		Path:     "/api/2.0/fo/asset/host/",
		Methods:  []string{"GET", "POST"},
		QueryParams: []string{
			"action", "echo_request", "show_asset_id", "details", "os_pattern",
			"truncation_limit", "ips", "ipv6", "ag_ids", "ag_titles", "ids",
			"id_min", "id_max", "network_ids", "compliance_enabled",
			"no_vm_scan_since", "no_compliance_scan_since", "vm_scan_since",
			"vm_processed_before", "vm_processed_after", "vm_scan_date_before",
			"vm_scan_date_after", "os_hostname", "use_tags", "tag_set_by",
			"tag_include_selector", "tag_exclude_selector", "tag_set_include",
			"tag_set_exclude", "show_tags", "host_metadata", "show_cloud_tags",
		},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseXML,
		Paginated:        true,
		AuthMode:         AuthBasic,
	},
	{
		Module:   "vmdr",
		Endpoint: "host_list_detection",
		URLKind:  URLAPI,
		Path:     "/api/2.0/fo/asset/host/vm/detection/",
		Methods:  []string{"GET", "POST"},
		QueryParams: []string{
			"action", "echo_request", "show_asset_id", "include_vuln_type",
			"show_results", "show_reopened_info", "arf_kernel_filter",
			"truncation_limit", "detection_processed_before",
			"detection_processed_after", "detection_updated_since",
			"detection_updated_before", "detection_last_tested_since",
			"detection_last_tested_before", "ids", "id_min", "id_max", "ips",
			"ag_ids", "ag_titles", "network_ids", "vm_scan_since", "qids",
			"severities", "filter_superseded_qids", "show_igs", "status",
			"use_tags", "tag_set_by", "tag_include_selector",
			"tag_exclude_selector", "tag_set_include", "tag_set_exclude",
		},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseXML,
		Paginated:        true,
		AuthMode:         AuthBasic,
	},
	{
		Module:   "vmdr",
		Endpoint: "knowledge_base",
		URLKind:  URLAPI,
		Path:     "/api/2.0/fo/knowledge_base/vuln/",
		Methods:  []string{"GET", "POST"},
		QueryParams: []string{
			"action", "echo_request", "details", "ids", "id_min", "id_max",
			"is_patchable", "last_modified_after", "last_modified_before",
			"last_modified_by_user_after", "last_modified_by_service_after",
			"published_after", "published_before", "discovery_method",
			"discovery_auth_types", "show_pci_reasons", "show_supported_modules_info",
			"show_disabled_flag", "show_qid_change_log",
		},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseXML,
		Paginated:        true,
		AuthMode:         AuthBasic,
	},
	{
		Module:   "vmdr",
		Endpoint: "scan_list",
		URLKind:  URLAPI,
		Path:     "/api/2.0/fo/scan/",
		Methods:  []string{"GET", "POST"},
		QueryParams: []string{
			"action", "echo_request", "scan_ref", "state", "processed", "type",
			"target", "user_login", "launched_after_datetime",
			"launched_before_datetime", "show_ags", "show_op", "show_status",
			"show_last", "ignore_target",
		},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseXML,
		Paginated:        false,
		AuthMode:         AuthBasic,
	},
	{
		Module:   "vmdr",
		Endpoint: "launch_scan",
		URLKind:  URLAPI,
		Path:     "/api/2.0/fo/scan/",
		Methods:  []string{"POST"},
		QueryParams: []string{
			"action", "echo_request",
		},
		BodyParams: []string{
			"scan_title", "option_id", "option_title", "priority", "ip",
			"asset_group_ids", "asset_groups", "runtime_http_header",
			"exclude_ip_per_scan", "default_scanner", "scanners_in_ag",
			"target_from", "tag_include_selector", "tag_exclude_selector",
			"tag_set_by", "tag_set_include", "tag_set_exclude",
			"use_ip_nt_range_tags", "iscanner_id", "iscanner_name",
			"ec2_instance_ids", "connector_name", "ec2_endpoint", "fqdn",
			"client_id", "client_name",
		},
		BodyEncoding:     BodyForm,
		ResponseEncoding: ResponseXML,
		Paginated:        false,
		AuthMode:         AuthBasic,
	},
	{
		Module:   "vmdr",
		Endpoint: "report_list",
		URLKind:  URLAPI,
		Path:     "/api/2.0/fo/report/",
		Methods:  []string{"GET", "POST"},
		QueryParams: []string{
			"action", "echo_request", "id", "state", "user_login",
			"expires_before_datetime", "client_id", "client_name",
		},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseXML,
		Paginated:        false,
		AuthMode:         AuthBasic,
	},
	{
		// Fetches a generated report; the payload is binary (PDF, CSV, XML...)
		// and the format must be inferred from the Content-Type header.
		Module:   "vmdr",
		Endpoint: "fetch_report",
		URLKind:  URLAPI,
		Path:     "/api/2.0/fo/report/",
		Methods:  []string{"GET", "POST"},
		QueryParams: []string{
			"action", "echo_request", "id",
		},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseBinary,
		Paginated:        false,
		AuthMode:         AuthBasic,
	},
	{
		Module:   "vmdr",
		Endpoint: "asset_group_list",
		URLKind:  URLAPI,
		Path:     "/api/2.0/fo/asset/group/",
		Methods:  []string{"GET", "POST"},
		QueryParams: []string{
			"action", "echo_request", "output_format", "ids", "id_min",
			"id_max", "truncation_limit", "network_ids", "unit_id", "user_id",
			"title", "show_attributes",
		},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseXML,
		Paginated:        true,
		AuthMode:         AuthBasic,
	},
	{
		// Policy compliance posture export; binary/streamed payload.
		Module:   "vmdr",
		Endpoint: "compliance_posture_export",
		URLKind:  URLAPI,
		Path:     "/api/2.0/fo/compliance/posture/info/",
		Methods:  []string{"GET", "POST"},
		QueryParams: []string{
			"action", "echo_request", "policy_id", "policy_ids", "output_format",
			"truncation_limit", "details", "include_dp_name", "cause_of_failure",
		},
		BodyEncoding:     BodyNone,
		ResponseEncoding: ResponseBinary,
		Paginated:        false,
		AuthMode:         AuthBasic,
	},
}
