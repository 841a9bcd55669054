package liveness

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/subwatch/subwatch/internal/logger"
)

// startResolver runs a local DNS server that answers an A record for
// alive.test and NXDOMAIN for everything else.
func startResolver(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		q := req.Question[0]
		if q.Name == "alive.test." && q.Qtype == dns.TypeA {
			m.Answer = append(m.Answer, &dns.A{
				Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
				A:   net.IPv4(127, 0, 0, 1),
			})
		} else {
			m.Rcode = dns.RcodeNameError
		}
		_ = w.WriteMsg(m)
	})

	srv := &dns.Server{PacketConn: pc, Handler: mux}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestIsActiveResolvableDomain(t *testing.T) {
	addr := startResolver(t)
	c := New(addr, time.Second, nil, 0, logger.New("error", false))
	c.probe = func(ctx context.Context, domainName string) bool { return true }

	if !c.IsActive(context.Background(), "alive.test") {
		t.Error("IsActive(alive.test) = false, want true")
	}
}

func TestIsActiveUnresolvableDomain(t *testing.T) {
	addr := startResolver(t)
	probed := false
	c := New(addr, time.Second, nil, 0, logger.New("error", false))
	c.probe = func(ctx context.Context, domainName string) bool {
		probed = true
		return true
	}

	if c.IsActive(context.Background(), "dead.test") {
		t.Error("IsActive(dead.test) = true, want false")
	}
	if probed {
		t.Error("HTTP probe should be skipped when the domain does not resolve")
	}
}

func TestIsActiveProbeFailure(t *testing.T) {
	addr := startResolver(t)
	c := New(addr, time.Second, nil, 0, logger.New("error", false))
	c.probe = func(ctx context.Context, domainName string) bool { return false }

	if c.IsActive(context.Background(), "alive.test") {
		t.Error("IsActive should be false when the domain resolves but never answers HTTP")
	}
}
