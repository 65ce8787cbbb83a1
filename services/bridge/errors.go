// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bridge

import (
	"errors"

	"github.com/AleutianAI/SceneBridge/services/bridge/contract"
	"github.com/AleutianAI/SceneBridge/services/bridge/host"
)

// ErrorFrom maps a host error onto the wire error taxonomy.
//
// Description:
//
//	Host implementations report failures with the sentinel errors in the
//	host package, possibly wrapped. ErrorFrom classifies them with
//	errors.Is so wrapping depth does not matter. Errors outside the
//	sentinel vocabulary get the caller-supplied fallback code, which lets
//	extraction routes default to EXTRACTION_FAILED while graph routes
//	default to INTERNAL_ERROR.
//
// Inputs:
//   - err: the host error; must not be nil
//   - fallback: code used when err matches no sentinel
//
// Outputs:
//   - *contract.Error carrying the mapped code and err's message
func ErrorFrom(err error, fallback contract.Code) *contract.Error {
	switch {
	case errors.Is(err, host.ErrNodeNotFound):
		return contract.NewError(contract.CodeNodeNotFound, err.Error())
	case errors.Is(err, host.ErrParmNotFound), errors.Is(err, host.ErrAttribNotFound):
		return contract.NewError(contract.CodeParmNotFound, err.Error())
	case errors.Is(err, host.ErrNoGeometry),
		errors.Is(err, host.ErrUnknownFlag),
		errors.Is(err, host.ErrUnknownType),
		errors.Is(err, host.ErrTypeMismatch):
		return contract.NewError(contract.CodeTypeMismatch, err.Error())
	case errors.Is(err, host.ErrCookFailed):
		return contract.NewError(contract.CodeCookError, err.Error())
	case errors.Is(err, host.ErrInvalidInput), errors.Is(err, host.ErrNameInUse):
		return contract.NewError(contract.CodeInvalidParams, err.Error())
	default:
		return contract.NewError(fallback, err.Error())
	}
}
