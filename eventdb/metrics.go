// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"github.com/lstlabs/settler/metrics"
)

var (
	metricInsertCount     = metrics.LazyLoadCounter("eventdb_inserted_events_count")
	metricQueryOrder      = metrics.LazyLoadCounterVec("eventdb_query_order", []string{"order"})
	metricQueryParameters = metrics.LazyLoadCounterVec("eventdb_query_parameters", []string{"parameter"})
	metricLimitBucket     = metrics.LazyLoadHistogramVec("eventdb_query_limit_bucket", []string{"type"}, []int64{
		0, 5, 10, 25, 50, 100, 250, 500, 1000,
	})
)

func metricsHandleFilter(filter *Filter) {
	metricQueryOrder().AddWithLabel(1, map[string]string{"order": string(filter.orderOrDefault())})
	if filter.Range != nil {
		metricQueryParameters().AddWithLabel(1, map[string]string{"parameter": "range"})
	}
	if len(filter.Names) > 0 {
		metricQueryParameters().AddWithLabel(1, map[string]string{"parameter": "names"})
	}
	if filter.Subject != "" {
		metricQueryParameters().AddWithLabel(1, map[string]string{"parameter": "subject"})
	}
	if filter.Options != nil {
		metricLimitBucket().ObserveWithLabels(int64(min(filter.Options.Limit, 1001)), map[string]string{"type": "event"})
	}
}
