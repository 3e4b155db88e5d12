package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"logtail/internal/retry"
	"logtail/internal/router"
	"logtail/internal/sink"
)

// buildSinks constructs the concrete sink for every entry in specs and
// registers it under its declared name, returning a registry ready to pass
// to router.New plus the closers to run at shutdown.
func buildSinks(ctx context.Context, specs []router.SinkSpec) (*sink.Registry, []io.Closer, error) {
	var sinks []sink.Sink
	var closers []io.Closer
	retryCfg := retry.DefaultConfig()

	for _, spec := range specs {
		switch spec.Type {
		case "http":
			url := spec.Params["url"]
			if url == "" {
				return nil, nil, fmt.Errorf("sink %s: http sink requires params.url", spec.Name)
			}
			trustDurable := spec.Params["trust_response_as_durable"] == "true"
			s := sink.NewHTTPSink(spec.Name, url, &http.Client{Timeout: 10 * time.Second}, trustDurable, retryCfg)
			sinks = append(sinks, s)

		case "clickhouse":
			addr := spec.Params["addr"]
			database := spec.Params["database"]
			table := spec.Params["table"]
			if addr == "" || table == "" {
				return nil, nil, fmt.Errorf("sink %s: clickhouse sink requires params.addr and params.table", spec.Name)
			}
			s, err := sink.NewClickHouseSink(ctx, spec.Name, addr, database, table, retryCfg)
			if err != nil {
				return nil, nil, err
			}
			sinks = append(sinks, s)
			closers = append(closers, s)

		case "lumberjack":
			endpoint := spec.Params["endpoint"]
			if endpoint == "" {
				return nil, nil, fmt.Errorf("sink %s: lumberjack sink requires params.endpoint", spec.Name)
			}
			timeout := 10 * time.Second
			if raw := spec.Params["timeout"]; raw != "" {
				d, err := time.ParseDuration(raw)
				if err != nil {
					return nil, nil, fmt.Errorf("sink %s: invalid timeout: %w", spec.Name, err)
				}
				timeout = d
			}
			s, err := sink.NewLumberjackSink(spec.Name, endpoint, timeout)
			if err != nil {
				return nil, nil, err
			}
			sinks = append(sinks, s)
			closers = append(closers, s)

		default:
			return nil, nil, fmt.Errorf("sink %s: unknown type %q", spec.Name, spec.Type)
		}
	}

	return sink.NewRegistry(sinks...), closers, nil
}
