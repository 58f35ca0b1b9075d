// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Field names shared by every component so log queries stay stable.
const (
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"
	FieldEvent     = "event"
	FieldComponent = "component"

	// build pipeline
	FieldStage    = "stage"
	FieldKind     = "kind"
	FieldPlaylist = "playlist"
	FieldCategory = "category"

	FieldPath = "path"
	FieldURL  = "url"
)
