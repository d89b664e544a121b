// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package htsp

// Server-to-client event methods.
const (
	MethodAutorecEntryAdd      = "autorecEntryAdd"
	MethodAutorecEntryUpdate   = "autorecEntryUpdate"
	MethodAutorecEntryDelete   = "autorecEntryDelete"
	MethodInitialSyncCompleted = "initialSyncCompleted"
)

// Client-to-server request methods.
const (
	MethodAddAutorecEntry    = "addAutorecEntry"
	MethodUpdateAutorecEntry = "updateAutorecEntry"
	MethodDeleteAutorecEntry = "deleteAutorecEntry"

	// MethodEnableAsyncMetadata asks the server to stream its full state
	// followed by initialSyncCompleted, then incremental updates.
	MethodEnableAsyncMetadata = "enableAsyncMetadata"
)

// Wire field names shared by events and requests.
const (
	FieldID            = "id"
	FieldEnabled       = "enabled"
	FieldRemoval       = "removal"
	FieldDaysOfWeek    = "daysOfWeek"
	FieldPriority      = "priority"
	FieldStart         = "start"
	FieldStartWindow   = "startWindow"
	FieldStartExtra    = "startExtra"
	FieldStopExtra     = "stopExtra"
	FieldDupDetect     = "dupDetect"
	FieldTitle         = "title"
	FieldName          = "name"
	FieldDirectory     = "directory"
	FieldOwner         = "owner"
	FieldCreator       = "creator"
	FieldChannel       = "channel"
	FieldChannelID     = "channelId"
	FieldFulltext      = "fulltext"
	FieldSeriesLinkURI = "serieslinkUri"
	FieldBroadcastType = "broadcastType"
	FieldConfigID      = "configId"
	FieldComment       = "comment"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldMethod        = "method"
)
