// Copyright 2025 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics instruments the translator graph with OpenTelemetry
// counters and histograms, exported via a Prometheus exporter.
package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// TranslatorKey annotates the translator that handled the fop.
	TranslatorKey = "translator"
	// FopKey annotates which fop was processed.
	FopKey = "fop"
	// TaxonomyKey reduces error cardinality by grouping errnos into the
	// error-handling design's taxonomy buckets.
	TaxonomyKey = "taxonomy"
)

var (
	fopMeter = otel.Meter("glusterfsd/fop")

	fopCount    metric.Int64Counter
	fopErrors   metric.Int64Counter
	fopDuration metric.Float64Histogram

	attrSets sync.Map
)

func init() {
	var err error
	fopCount, err = fopMeter.Int64Counter("glusterfs_fop_total",
		metric.WithDescription("Total fops dispatched per translator."))
	if err != nil {
		panic(err)
	}
	fopErrors, err = fopMeter.Int64Counter("glusterfs_fop_errors_total",
		metric.WithDescription("Total fops that unwound with a non-zero errno, by taxonomy bucket."))
	if err != nil {
		panic(err)
	}
	fopDuration, err = fopMeter.Float64Histogram("glusterfs_fop_duration_seconds",
		metric.WithDescription("Wind-to-unwind latency per fop."))
	if err != nil {
		panic(err)
	}
}

type fopKey struct {
	translator, fop string
}

func setFor(translator, fop string) metric.MeasurementOption {
	key := fopKey{translator, fop}
	if v, ok := attrSets.Load(key); ok {
		return v.(metric.MeasurementOption)
	}
	opt := metric.WithAttributeSet(attribute.NewSet(
		attribute.String(TranslatorKey, translator),
		attribute.String(FopKey, fop),
	))
	v, _ := attrSets.LoadOrStore(key, opt)
	return v.(metric.MeasurementOption)
}

// RecordFop records one fop dispatch, its duration, and (if errno is
// non-zero) which taxonomy bucket it fell into.
func RecordFop(ctx context.Context, translator, fop string, durationSeconds float64, taxonomy string, failed bool) {
	opt := setFor(translator, fop)
	fopCount.Add(ctx, 1, opt)
	fopDuration.Record(ctx, durationSeconds, opt)
	if failed {
		fopErrors.Add(ctx, 1, metric.WithAttributeSet(attribute.NewSet(
			attribute.String(TranslatorKey, translator),
			attribute.String(FopKey, fop),
			attribute.String(TaxonomyKey, taxonomy),
		)))
	}
}
