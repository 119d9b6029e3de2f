package selector

import "fmt"

// DefaultInfos returns the infos shipped with the product.
func DefaultInfos() []*Info {
	return []*Info{
		{Name: "host", Title: "Host", TitlePlural: "Hosts", KeyColumns: []string{"host_name"}},
		{Name: "service", Title: "Service", TitlePlural: "Services", KeyColumns: []string{"service_description"}},
		{Name: "hostgroup", Title: "Host Group", TitlePlural: "Host Groups", KeyColumns: []string{"hostgroup_name"}},
		{Name: "servicegroup", Title: "Service Group", TitlePlural: "Service Groups", KeyColumns: []string{"servicegroup_name"}},
		{Name: "aggr", Title: "BI Aggregation", TitlePlural: "BI Aggregations", KeyColumns: []string{"aggr_name"}},
		{Name: "log", Title: "Monitoring Log Entry", TitlePlural: "Monitoring Log Entries"},
	}
}

// DefaultSelectors returns the selectors shipped with the product.
func DefaultSelectors() []Selector {
	return []Selector{
		NewLivestatusTextSelector(Definition{
			Name: "host", Title: "Host", Info: "host", Topic: "Hosts", Variables: []string{"host"},
		}, "host_name", "="),
		NewLivestatusTextSelector(Definition{
			Name: "host_regex", Title: "Hostname (regular expression)", Info: "host", Topic: "Hosts", Variables: []string{"host_regex"},
		}, "host_name", "~~"),
		NewLivestatusTextSelector(Definition{
			Name: "service", Title: "Service", Info: "service", Topic: "Services", Variables: []string{"service"},
		}, "service_description", "="),
		NewLivestatusTextSelector(Definition{
			Name: "service_regex", Title: "Service (regular expression)", Info: "service", Topic: "Services", Variables: []string{"service_regex"},
		}, "service_description", "~~"),
		NewLivestatusTextSelector(Definition{
			Name: "hostgroup", Title: "Host Group", Info: "hostgroup", Topic: "Host Groups", Variables: []string{"hostgroup"},
		}, "host_groups", ">="),
		NewLivestatusTextSelector(Definition{
			Name: "servicegroup", Title: "Service Group", Info: "servicegroup", Topic: "Service Groups", Variables: []string{"servicegroup"},
		}, "service_groups", ">="),
		NewRowSelector(Definition{
			Name: "aggr", Title: "Aggregation", Info: "aggr", Topic: "Business Intelligence", Variables: []string{"aggr"},
		}, "aggr_name", MatchExact),
		NewRowSelector(Definition{
			Name: "aggr_regex", Title: "Aggregation (regular expression)", Info: "aggr", Topic: "Business Intelligence", Variables: []string{"aggr_regex"},
		}, "aggr_name", MatchRegex),
		NewRowSelector(Definition{
			Name: "log_text", Title: "Log message", Info: "log", Variables: []string{"log_text"},
		}, "log_plugin_output", MatchSubstring),
	}
}

// RegisterDefaults registers the shipped infos followed by the shipped selectors.
func RegisterDefaults(infos *InfoRegistry, sels *Registry) error {
	for _, info := range DefaultInfos() {
		infos.Register(info)
	}
	for _, s := range DefaultSelectors() {
		if err := sels.Register(s); err != nil {
			return fmt.Errorf("registering selector %s: %w", s.Name(), err)
		}
	}
	return nil
}
