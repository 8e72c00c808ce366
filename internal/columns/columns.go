package columns

// Human-readable field names of the MOU table. These are the keys of every
// record on the wire; the transcode package maps them to storage-safe keys.
const (
	ID                  = "_id"
	WBSL2               = "WBS L2"
	WBSL3               = "WBS L3"
	USNonUS             = "US / Non-US"
	Institution         = "Institution"
	LaborCat            = "Labor Cat."
	Name                = "Name"
	Task                = "Task"
	TaskDescription     = "Task Description"
	SourceOfFundsUSOnly = "Source of Funds (U.S. Only)"
	FTE                 = "FTE"
	TotalCol            = "Total Of?"
	NSFMOCore           = "NSF M&O Core"
	NSFBaseGrants       = "NSF Base Grants"
	USInKind            = "US In-Kind"
	NonUSInKind         = "Non-US In-Kind"
	GrandTotal          = "Grand Total"
	Timestamp           = "Timestamp"
	Editor              = "Editor"
)

// Region values for the US / Non-US column
const (
	US    = "US"
	NonUS = "Non-US"
)

// FundingSources are the four funding-source bucket columns.
var FundingSources = []string{NSFMOCore, NSFBaseGrants, USInKind, NonUSInKind}
