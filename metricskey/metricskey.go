package metricskey

import "github.com/effective-security/metrics"

// Perf
var (
	// PerfVerify is perf metric
	PerfVerify = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_verify",
		Help:         "perf_verify provides the sample metrics of signature verification",
		RequiredTags: []string{"source"},
	}

	// PerfParse is perf metric
	PerfParse = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_parse",
		Help:         "perf_parse provides the sample metrics of packet parsing",
		RequiredTags: []string{"source"},
	}

	// PerfKeyringLoad is perf metric
	PerfKeyringLoad = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_keyring_load",
		Help:         "perf_keyring_load provides the sample metrics of keyring loading",
		RequiredTags: []string{"source"},
	}
)

// Metrics returns slice of metrics from this repo
var Metrics = []*metrics.Describe{
	&PerfVerify,
	&PerfParse,
	&PerfKeyringLoad,
}
