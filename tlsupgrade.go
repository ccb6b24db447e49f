package httpcore

import (
	"strings"

	"github.com/go-ipp/httpcore/pkg/field"
	"github.com/go-ipp/httpcore/pkg/httperr"
	"github.com/go-ipp/httpcore/pkg/iobuf"
	"github.com/go-ipp/httpcore/pkg/sockio"
	"github.com/go-ipp/httpcore/pkg/tlsadapter"
)

// UpgradeInBand performs the RFC 2817 in-band TLS upgrade: send an
// OPTIONS * request with "Upgrade: TLS/1.0" and "Connection: Upgrade",
// expect a "101 Switching Protocols" response, then run the TLS
// handshake over the same socket. Used when Encryption is Required or
// IfRequested and the peer has not already negotiated TLS at connect
// time; grounded on the teacher's ConfigureSNI/upgradeTLS, generalized
// from "always TLS before the first byte" to "TLS after an explicit
// in-band negotiation" since the teacher has no RFC 2817 support at all.
func (c *Connection) UpgradeInBand(cfg tlsadapter.ClientConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateWaiting {
		return httperr.NewBadArg("UpgradeInBand requires a connection in WAITING state")
	}

	if _, err := c.out.WriteString("OPTIONS * HTTP/1.1\r\n"); err != nil {
		return err
	}
	_ = c.fields.Set(field.Upgrade, "TLS/1.0")
	_ = c.fields.Set(field.Connection, "Upgrade")
	_ = c.fields.Set(field.Host, hostFieldValue(c.host, c.port))
	if err := c.writeFieldLines(); err != nil {
		return err
	}
	if err := c.out.Flush(); err != nil {
		return err
	}

	line, err := c.in.ReadLine()
	if err != nil {
		return err
	}
	if !strings.Contains(line, " 101 ") {
		return httperr.NewProtocol("tls_upgrade", "peer declined in-band TLS upgrade: "+line, nil)
	}
	c.fields.Clear()
	if err := c.readFieldLines(); err != nil {
		return err
	}

	return c.upgradeToTLS(cfg)
}

// OfferUpgrade is the server-side counterpart: after reading an OPTIONS *
// request carrying "Upgrade: TLS/1.0", reply with "101 Switching
// Protocols" and run the TLS handshake as the server.
func (c *Connection) OfferUpgrade(cfg tlsadapter.ServerConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.method != "OPTIONS" || !strings.Contains(strings.ToLower(c.fields.Get(field.Upgrade)), "tls") {
		return httperr.NewBadArg("OfferUpgrade requires a pending OPTIONS request with Upgrade: TLS/*")
	}

	if _, err := c.out.WriteString("HTTP/1.1 101 Switching Protocols\r\n"); err != nil {
		return err
	}
	_ = c.fields.Set(field.Upgrade, "TLS/1.0")
	_ = c.fields.Set(field.Connection, "Upgrade")
	if err := c.writeFieldLines(); err != nil {
		return err
	}
	if err := c.out.Flush(); err != nil {
		return err
	}

	tc, err := tlsadapter.Accept(c.raw, cfg)
	if err != nil {
		return err
	}
	c.raw = tc
	c.sock = sockio.New(tc, c.sock.Timeout())
	c.in = iobuf.NewReader(c.sock)
	c.out = iobuf.NewWriter(c.sock)
	c.state = StateWaiting
	return nil
}
