package monitors

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"

	"github.com/upwatch-dev/upwatch/internal/types"
)

// classifyProbeError maps a transport error onto the probe status and error
// type recorded on the check event.
func classifyProbeError(err error) (types.CheckStatus, types.ErrorType) {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.CheckTimeout, types.ErrorTypeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.CheckTimeout, types.ErrorTypeTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return types.CheckFailure, types.ErrorTypeDNS
	}

	if isTLSError(err) {
		return types.CheckFailure, types.ErrorTypeTLS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return types.CheckFailure, types.ErrorTypeConnection
	}

	return types.CheckFailure, types.ErrorTypeOther
}

func isTLSError(err error) bool {
	var recordErr tls.RecordHeaderError
	var verifyErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var invalidCert x509.CertificateInvalidError
	var hostnameErr x509.HostnameError

	return errors.As(err, &recordErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuthority) ||
		errors.As(err, &invalidCert) ||
		errors.As(err, &hostnameErr)
}
