/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package discovery announces querysync API servers on the local network over
mDNS/DNS-SD, so editors can find a translator without configuration.

SERVICE TYPE:
=============
querysync advertises itself as: _querysync._tcp.local.

Each server publishes:
  - Instance name: the host name unless set explicitly
  - Port: the HTTP API port
  - TXT records: version, api (path prefix), preview (on/off)

USAGE:
======

	adv, err := discovery.Advertise(discovery.Config{Addr: ":8642", Version: "0.4.0"})
	defer adv.Shutdown()

	servers, err := discovery.Browse(ctx, 3*time.Second)
*/
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"

	"querysync/internal/logging"
)

const (
	// ServiceType is the mDNS service type for querysync.
	ServiceType = "_querysync._tcp"

	// DefaultBrowseTimeout bounds Browse when no timeout is given.
	DefaultBrowseTimeout = 3 * time.Second

	apiPrefix = "/v1"
)

var logger = logging.NewLogger("discovery")

// Config describes the server being announced.
type Config struct {
	Instance string // defaults to the host name
	Addr     string // listen address of the HTTP API
	Version  string
	Preview  bool
}

// Server is an API server found on the network.
type Server struct {
	Instance     string    `json:"instance"`
	URL          string    `json:"url"`
	Version      string    `json:"version,omitempty"`
	Preview      bool      `json:"preview"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Advertiser answers mDNS queries until Shutdown.
type Advertiser struct {
	mu     sync.Mutex
	server *mdns.Server
}

// Advertise starts announcing the API described by cfg.
func Advertise(cfg Config) (*Advertiser, error) {
	host, portStr, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid listen address: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, fmt.Errorf("invalid listen port %q", portStr)
	}

	instance := cfg.Instance
	if instance == "" {
		instance, _ = os.Hostname()
	}
	if instance == "" {
		instance = "querysync"
	}

	var ips []net.IP
	if host == "" || host == "0.0.0.0" || host == "::" {
		ips = localIPs()
	} else if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	}

	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", port, ips, txtRecords(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS responder: %w", err)
	}

	logger.Info("Advertising API", "instance", instance, "port", port, "service", ServiceType)
	return &Advertiser{server: server}, nil
}

// Shutdown stops answering queries. It is safe to call more than once.
func (a *Advertiser) Shutdown() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return nil
	}
	err := a.server.Shutdown()
	a.server = nil
	return err
}

func txtRecords(cfg Config) []string {
	preview := "off"
	if cfg.Preview {
		preview = "on"
	}
	return []string{
		"version=" + cfg.Version,
		"api=" + apiPrefix,
		"preview=" + preview,
	}
}

// Browse queries the local network for API servers until timeout or ctx is
// done. Results are sorted by instance name.
func Browse(ctx context.Context, timeout time.Duration) ([]Server, error) {
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	found := make(map[string]Server)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for entry := range entries {
			if s, ok := parseServiceEntry(entry); ok {
				found[s.URL] = s
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- mdns.Query(&mdns.QueryParam{
			Service:             ServiceType,
			Domain:              "local",
			Timeout:             timeout,
			Entries:             entries,
			WantUnicastResponse: true,
		})
		close(entries)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errCh:
		<-collected
		if err != nil {
			return nil, fmt.Errorf("mDNS query failed: %w", err)
		}
	}

	servers := make([]Server, 0, len(found))
	for _, s := range found {
		servers = append(servers, s)
	}
	sort.Slice(servers, func(i, j int) bool {
		if servers[i].Instance != servers[j].Instance {
			return servers[i].Instance < servers[j].Instance
		}
		return servers[i].URL < servers[j].URL
	})
	return servers, nil
}

// parseServiceEntry turns an mDNS answer into a Server. Entries without an
// address are skipped.
func parseServiceEntry(entry *mdns.ServiceEntry) (Server, bool) {
	if entry == nil {
		return Server{}, false
	}

	var ip string
	switch {
	case entry.AddrV4 != nil:
		ip = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		ip = entry.AddrV6.String()
	default:
		return Server{}, false
	}

	s := Server{
		Instance:     strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		DiscoveredAt: time.Now(),
	}
	prefix := apiPrefix
	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "version":
			s.Version = value
		case "api":
			prefix = value
		case "preview":
			s.Preview = value == "on"
		}
	}
	s.URL = "http://" + net.JoinHostPort(ip, strconv.Itoa(entry.Port)) + prefix
	return s, true
}

// localIPs returns all non-loopback IPv4 addresses.
func localIPs() []net.IP {
	var ips []net.IP

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ips
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
			ips = append(ips, ipnet.IP)
		}
	}
	return ips
}
