// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tls

import (
	"bytes"
	"crypto/x509"
	"errors"

	"github.com/lesismal/llib/std/crypto/tls"
)

// ErrPeerCertMismatch is returned by the handshake when the peer does not
// present our own certificate.
var ErrPeerCertMismatch = errors.New("tls: peer certificate does not match own certificate")

// Params describes the key material of one endpoint. Nodes of a cluster
// share one certificate, so a peer is trusted iff it presents that same
// certificate.
type Params struct {
	KeyFile  string
	CertFile string

	// VerifyPeer requires the peer to present exactly our certificate.
	VerifyPeer bool
}

// LoadKeyPair reads the PEM encoded key and certificate of p.
func (p *Params) LoadKeyPair() (Certificate, error) {
	return tls.LoadX509KeyPair(p.CertFile, p.KeyFile)
}

// ServerConfig returns a server configuration for p.
func (p *Params) ServerConfig() (*Config, error) {
	cert, err := p.LoadKeyPair()
	if err != nil {
		return nil, err
	}
	conf := &Config{
		Certificates: []Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if p.VerifyPeer {
		conf.ClientAuth = tls.RequireAnyClientCert
		conf.VerifyPeerCertificate = sameCertificate(cert)
	}
	return conf, nil
}

// ClientConfig returns a client configuration for p. Without VerifyPeer the
// server certificate is not checked at all.
func (p *Params) ClientConfig() (*Config, error) {
	cert, err := p.LoadKeyPair()
	if err != nil {
		return nil, err
	}
	conf := &Config{
		Certificates:       []Certificate{cert},
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true,
	}
	if p.VerifyPeer {
		conf.VerifyPeerCertificate = sameCertificate(cert)
	}
	return conf, nil
}

func sameCertificate(own Certificate) func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 || len(own.Certificate) == 0 {
			return ErrPeerCertMismatch
		}
		if !bytes.Equal(rawCerts[0], own.Certificate[0]) {
			return ErrPeerCertMismatch
		}
		return nil
	}
}
