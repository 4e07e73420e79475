package errorx

type Code int

var Unknown = Error{Code: 100000, Message: "Request failed"}

const (
	// Common codes
	BadRequest       Code = 100001
	BadResponse      Code = 100002
	PermissionDenied Code = 100003
	NotFound         Code = 100004
	Unauthenticated  Code = 100005
	AlreadyExists    Code = 100006
	Internal         Code = 100007
	Unavailable      Code = 100008
	NotImplemented   Code = 100009
	TooManyRequests  Code = 100010
	MethodNotAllowed Code = 100011

	// Wheel codes
	ConfigInvalid    Code = 200001
	InvalidQuantity  Code = 200002
	WheelUnavailable Code = 200003

	// Draw codes
	InvalidTransition     Code = 300001
	DrawFinalized         Code = 300002
	DrawNotLocked         Code = 300003
	NoEligibleEntries     Code = 300004
	NoWinnersSelected     Code = 300005
	WinnerAlreadySelected Code = 300006
)
