package gate

// Warning is a user facing reason why a gate operation was refused.
// The gate state is never changed when a Warning is returned.
type Warning struct {
	Code    string
	Title   string
	Message string
}

func (w *Warning) Error() string {
	return w.Title + ": " + w.Message
}

var (
	ErrNoMethod = &Warning{
		Code:    "no_method",
		Title:   "Choose a Method",
		Message: "Watch a short ad or subscribe with your email to unlock the download.",
	}
	ErrAdNotFinished = &Warning{
		Code:    "ad_not_finished",
		Title:   "Ad Not Finished",
		Message: "Please wait for the ad to finish before downloading.",
	}
	ErrInvalidEmail = &Warning{
		Code:    "invalid_email",
		Title:   "Invalid Email",
		Message: "Please enter a valid email address.",
	}
	ErrConsentRequired = &Warning{
		Code:    "consent_required",
		Title:   "Consent Required",
		Message: "Please agree to receive our newsletter to continue.",
	}
	ErrWrongMethod = &Warning{
		Code:    "wrong_method",
		Title:   "Wrong Method",
		Message: "This action is not available for the selected download method.",
	}
	ErrUnknownMethod = &Warning{
		Code:    "unknown_method",
		Title:   "Unknown Method",
		Message: "The download method must be \"ad\" or \"email\".",
	}
	ErrDownloadInProgress = &Warning{
		Code:    "download_in_progress",
		Title:   "Download In Progress",
		Message: "Your download is already being prepared.",
	}
)
