package apierrors

const (
	MsgValidation         = "validationFailed"
	MsgInvalidPayload     = "invalidPayload"
	MsgInvalidID          = "invalidID"
	MsgForbidden          = "forbidden"
	MsgInvalidState       = "invalidState"
	MsgInvalidTransition  = "invalidTransition"
	MsgAlreadyDecided     = "alreadyDecided"
	MsgIncompleteData     = "incompleteData"
	MsgInvalidApprovers   = "invalidApprovers"
	MsgNotFound           = "notFound"
	MsgConflict           = "conflict"
	MsgUnauthorized       = "unauthorized"
	MsgInvalidCredentials = "invalidCredentials"
	MsgInternal           = "internalError"
)

const (
	LanguageEn  = "en"
	LanguageFil = "fil"
)
