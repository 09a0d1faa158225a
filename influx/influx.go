// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package influx exports summarized benchmark series to InfluxDB.
package influx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/hpxcv/mandelbench/benchseries"
)

// Measurement is the InfluxDB measurement all points are written to.
const Measurement = "mandelbrot"

// Options locate the InfluxDB bucket to write to.
type Options struct {
	URL    string
	Org    string
	Bucket string
	Token  string
}

// Points returns one point per backend and sweep key of c, stamped
// with ts. Points are tagged with the backend, sweep and key and carry
// the run count and the mean and deviation of every recorded metric.
func Points(c *benchseries.Collection, ts time.Time) []*write.Point {
	var points []*write.Point
	for _, s := range c.Series {
		for _, p := range s.Points {
			tags := map[string]string{
				"backend": s.Backend,
				"sweep":   c.Sweep.String(),
				"key":     strconv.Itoa(p.Key),
			}
			fields := map[string]interface{}{
				"n": int64(p.N),
			}
			for _, m := range c.Metrics() {
				sum, ok := p.Summary(m)
				if !ok {
					continue
				}
				fields[m.String()+"_mean"] = sum.Mean
				fields[m.String()+"_std"] = sum.StdDev
			}
			points = append(points, influxdb2.NewPoint(Measurement, tags, fields, ts))
		}
	}
	return points
}

// Write writes the points of c to the bucket described by opts.
func Write(ctx context.Context, opts Options, c *benchseries.Collection, ts time.Time) error {
	if opts.URL == "" || opts.Org == "" || opts.Bucket == "" {
		return errors.New("influx: URL, org and bucket are required")
	}
	client := influxdb2.NewClient(opts.URL, opts.Token)
	defer client.Close()

	api := client.WriteAPIBlocking(opts.Org, opts.Bucket)
	if err := api.WritePoint(ctx, Points(c, ts)...); err != nil {
		return fmt.Errorf("influx: %w", err)
	}
	return nil
}

// TokenFromSecret reads an InfluxDB token from Secret Manager. name is
// the full resource name of a secret version, for example
// "projects/p/secrets/influx-token/versions/latest".
func TokenFromSecret(ctx context.Context, name string) (string, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("secretmanager: %w", err)
	}
	defer client.Close()

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return "", fmt.Errorf("accessing %s: %w", name, err)
	}
	return string(result.Payload.Data), nil
}
