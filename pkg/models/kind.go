// Package models defines the core domain models for campaign flow graphs.
package models

// NodeKind identifies the step a flow node performs. Action kinds do
// something to a lead; condition kinds branch the flow on a yes/no check.
type NodeKind string

// Action kinds.
const (
	KindSendEmail       NodeKind = "send_email"
	KindLinkedInMessage NodeKind = "linkedin_message"
	KindVisitProfile    NodeKind = "visit_profile"
	KindLikePost        NodeKind = "like_post"
	KindCreateTask      NodeKind = "create_task"
	KindWait            NodeKind = "wait"
	KindInvite          NodeKind = "invite"
)

// Condition kinds.
const (
	KindHasEmail       NodeKind = "has_email"
	KindEmailOpened    NodeKind = "email_opened"
	KindInviteAccepted NodeKind = "invite_accepted"
	KindLinkClicked    NodeKind = "link_clicked"
	KindHasPhone       NodeKind = "has_phone"
	KindEmailVerified  NodeKind = "email_verified"
)

type kindInfo struct {
	label     string
	subtitle  string
	condition bool
}

var kindCatalog = map[NodeKind]kindInfo{
	KindSendEmail:       {label: "Send Email", subtitle: "Send an email to the lead"},
	KindLinkedInMessage: {label: "LinkedIn Message", subtitle: "Send a LinkedIn direct message"},
	KindVisitProfile:    {label: "Visit Profile", subtitle: "Visit the lead's LinkedIn profile"},
	KindLikePost:        {label: "Like Post", subtitle: "Like the lead's most recent post"},
	KindCreateTask:      {label: "Create Task", subtitle: "Create a manual task for this lead"},
	KindWait:            {label: "Wait", subtitle: "Pause the flow for a number of days"},
	KindInvite:          {label: "Invite", subtitle: "Send a LinkedIn connection invite"},

	KindHasEmail:       {label: "Has Email?", subtitle: "Branch on whether an email address is known", condition: true},
	KindEmailOpened:    {label: "Email Opened?", subtitle: "Branch on whether the last email was opened", condition: true},
	KindInviteAccepted: {label: "Invite Accepted?", subtitle: "Branch on whether the invite was accepted", condition: true},
	KindLinkClicked:    {label: "Link Clicked?", subtitle: "Branch on whether a tracked link was clicked", condition: true},
	KindHasPhone:       {label: "Has Phone?", subtitle: "Branch on whether a phone number is known", condition: true},
	KindEmailVerified:  {label: "Email Verified?", subtitle: "Branch on whether the email address verified", condition: true},
}

// LabelFor returns the display label for a kind. Unknown kinds fall back
// to the raw kind string so a newer backend never crashes an older client.
func LabelFor(kind NodeKind) string {
	if info, ok := kindCatalog[kind]; ok {
		return info.label
	}

	return string(kind)
}

// SubtitleFor returns the display subtitle for a kind, falling back to the
// raw kind string for unknown kinds.
func SubtitleFor(kind NodeKind) string {
	if info, ok := kindCatalog[kind]; ok {
		return info.subtitle
	}

	return string(kind)
}

// IsCondition reports whether the kind branches the flow.
func IsCondition(kind NodeKind) bool {
	return kindCatalog[kind].condition
}

// Kinds returns every known kind. The order is unspecified.
func Kinds() []NodeKind {
	kinds := make([]NodeKind, 0, len(kindCatalog))
	for kind := range kindCatalog {
		kinds = append(kinds, kind)
	}

	return kinds
}
