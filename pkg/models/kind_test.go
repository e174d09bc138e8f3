package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelFor(t *testing.T) {
	assert.Equal(t, "Send Email", LabelFor(KindSendEmail))
	assert.Equal(t, "Has Email?", LabelFor(KindHasEmail))

	// Unknown kinds fall back to the raw string so newer backends do
	// not crash older clients.
	assert.Equal(t, "future_kind", LabelFor(NodeKind("future_kind")))
	assert.Equal(t, "future_kind", SubtitleFor(NodeKind("future_kind")))
}

func TestIsCondition(t *testing.T) {
	assert.False(t, IsCondition(KindSendEmail))
	assert.False(t, IsCondition(KindWait))
	assert.True(t, IsCondition(KindHasEmail))
	assert.True(t, IsCondition(KindInviteAccepted))
	assert.False(t, IsCondition(NodeKind("future_kind")))
}

func TestNormalizeTiming(t *testing.T) {
	wait := NewFlowNode("a", KindWait)
	wait.WaitTime = 17
	wait.Duration = 9
	wait.NormalizeTiming()
	assert.Equal(t, MinWaitMinutes, wait.WaitTime)
	assert.Zero(t, wait.Duration)

	wait.WaitTime = 3000
	wait.NormalizeTiming()
	assert.Equal(t, 2880, wait.WaitTime)

	email := NewFlowNode("b", KindSendEmail)
	email.Duration = -3
	email.WaitTime = 500
	email.NormalizeTiming()
	assert.Equal(t, MinDurationDays, email.Duration)
	assert.Zero(t, email.WaitTime)

	cond := NewFlowNode("c", KindHasEmail)
	cond.WaitTime = 1440
	cond.Duration = 5
	cond.NormalizeTiming()
	assert.Zero(t, cond.WaitTime)
	assert.Zero(t, cond.Duration)
}

func TestKinds_CoversCatalog(t *testing.T) {
	kinds := Kinds()

	assert.Len(t, kinds, 13)
	assert.Contains(t, kinds, KindWait)
	assert.Contains(t, kinds, KindEmailVerified)
}
