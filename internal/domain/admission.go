package domain

type AdmissionDecision string

const (
	AdmissionProceed  AdmissionDecision = "proceed"
	AdmissionRedirect AdmissionDecision = "redirect"
)

type RejectReason string

const (
	RejectNotFound RejectReason = "not-found"
	RejectFull     RejectReason = "full"
)

// Admission is the gatekeeper's verdict for one room-path request.
type Admission struct {
	Decision AdmissionDecision
	Reason   RejectReason
	Room     *Room
	// Token is the credential the client should carry: the re-presented one or
	// a freshly issued one. Empty for bots.
	Token  string
	Issued bool
	Bot    bool
}

func (a *Admission) Admitted() bool {
	return a.Decision == AdmissionProceed
}

func Proceed(room *Room, token string, issued bool) *Admission {
	return &Admission{Decision: AdmissionProceed, Room: room, Token: token, Issued: issued}
}

func Reject(reason RejectReason) *Admission {
	return &Admission{Decision: AdmissionRedirect, Reason: reason}
}
