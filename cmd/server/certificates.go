package main

import (
	"context"

	"github.com/rpgmem/ffcertificate-sub002/internal/core/domain"
	"github.com/rpgmem/ffcertificate-sub002/internal/core/ports"
)

// noCertificates atende /verify quando não há banco configurado.
type noCertificates struct{}

func (noCertificates) LookupCertificate(context.Context, string) (ports.Certificate, error) {
	return ports.Certificate{}, domain.ErrCertificateNotFound
}
