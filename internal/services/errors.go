package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInquiryNotFound       = errors.New("inquiry not found")
	ErrListingNotFound       = errors.New("listing not found")
	ErrAgreedVehicleNotFound = errors.New("agreed vehicle not found")
	ErrFavoriteNotFound      = errors.New("favorite not found")
	ErrTemplateNotFound      = errors.New("email template not found")

	ErrInvalidPrice      = errors.New("agreed price must be a positive number")
	ErrInvalidID         = errors.New("invalid identifier")
	ErrInvalidListing    = errors.New("invalid listing data")
	ErrInvalidInquiry    = errors.New("invalid inquiry")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrInvalidTemplate   = errors.New("invalid email template")

	ErrAlreadyAgreed        = errors.New("inquiry already has an agreed vehicle")
	ErrVehicleAlreadyAgreed = errors.New("vehicle is already under agreement")
)

// InquiryNotFoundError lists every collection searched for an inquiry.
// It matches ErrInquiryNotFound with errors.Is.
type InquiryNotFoundError struct {
	ID      string
	Scanned []string
}

func (e *InquiryNotFoundError) Error() string {
	return fmt.Sprintf("inquiry %s not found in collections [%s]", e.ID, strings.Join(e.Scanned, ", "))
}

func (e *InquiryNotFoundError) Is(target error) bool {
	return target == ErrInquiryNotFound
}

// AlreadyAgreedError carries the vehicle that already satisfies an agreement.
// It matches ErrAlreadyAgreed with errors.Is.
type AlreadyAgreedError struct {
	InquiryID string
	VehicleID string
}

func (e *AlreadyAgreedError) Error() string {
	if e.VehicleID == "" {
		return fmt.Sprintf("inquiry %s already has an agreed vehicle", e.InquiryID)
	}
	return fmt.Sprintf("inquiry %s already has agreed vehicle %s", e.InquiryID, e.VehicleID)
}

func (e *AlreadyAgreedError) Is(target error) bool {
	return target == ErrAlreadyAgreed
}
