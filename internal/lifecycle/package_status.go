package lifecycle

import "errors"

// PackageStatus is the status of a premium package upgrade request.
type PackageStatus string

const (
	PackagePending     PackageStatus = "pending"
	PackageBankSent    PackageStatus = "bank_sent"
	PackagePaymentSent PackageStatus = "payment_sent"
	PackageApproved    PackageStatus = "approved"
	PackageRejected    PackageStatus = "rejected"
	PackageExpired     PackageStatus = "expired"
)

// ErrRequestClosed is returned for any transition out of rejected or expired.
var ErrRequestClosed = errors.New("package request is closed")

var packageEdges = map[PackageStatus][]PackageStatus{
	PackagePending:     {PackageBankSent, PackageRejected},
	PackageBankSent:    {PackagePaymentSent},
	PackagePaymentSent: {PackageApproved, PackageRejected},
	PackageApproved:    {PackageExpired},
}

// IsClosed reports whether the request can no longer move.
func (s PackageStatus) IsClosed() bool {
	return s == PackageRejected || s == PackageExpired
}

// IsOpen reports whether the request is still waiting on the admin.
func (s PackageStatus) IsOpen() bool {
	return s == PackagePending || s == PackageBankSent || s == PackagePaymentSent
}

// NextPackageStatuses lists the statuses reachable from s in one step.
func NextPackageStatuses(s PackageStatus) []PackageStatus {
	return packageEdges[s]
}

// ValidatePackageTransition enforces the forward-only chain
// pending -> bank_sent -> payment_sent -> approved -> expired, with rejected
// reachable from pending and payment_sent.
func ValidatePackageTransition(current, target PackageStatus) error {
	if current.IsClosed() {
		return ErrRequestClosed
	}
	for _, s := range packageEdges[current] {
		if s == target {
			return nil
		}
	}
	return ErrInvalidTransition
}
