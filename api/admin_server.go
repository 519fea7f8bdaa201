// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/lstlabs/settler/api/admin"
	"github.com/lstlabs/settler/co"
	"github.com/lstlabs/settler/health"
	"github.com/lstlabs/settler/metrics"
)

func serve(addr, name string, handler http.Handler) (string, func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.Wrapf(err, "listen %s addr [%v]", name, addr)
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes co.Goes
	goes.Go(func() {
		srv.Serve(listener)
	})
	return "http://" + listener.Addr().String(), func() {
		srv.Close()
		goes.Wait()
	}, nil
}

// StartAdminServer serves the runtime controls on their own listener.
func StartAdminServer(addr string, logLevel *slog.LevelVar, apiLogs *atomic.Bool, health *health.Health) (string, func(), error) {
	url, closeFunc, err := serve(addr, "admin API", admin.New(logLevel, apiLogs, health))
	if err != nil {
		return "", nil, err
	}
	return url + "/admin", closeFunc, nil
}

// StartMetricsServer exposes the prometheus metrics on their own listener.
func StartMetricsServer(addr string) (string, func(), error) {
	router := http.NewServeMux()
	router.Handle("/metrics", metrics.HTTPHandler())
	url, closeFunc, err := serve(addr, "metrics", router)
	if err != nil {
		return "", nil, err
	}
	return url + "/metrics", closeFunc, nil
}
