package drive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swerve-core/kinematics"
)

func TestParseAlliance(t *testing.T) {
	assert.Equal(t, AllianceRed, ParseAlliance(" RED "))
	assert.Equal(t, AllianceBlue, ParseAlliance("blue"))
	assert.Equal(t, AllianceUnknown, ParseAlliance(""))
	assert.Equal(t, "red", AllianceRed.String())
}

func TestMirrorPredicate(t *testing.T) {
	assert.True(t, MirrorPredicate(FixedAlliance(AllianceRed))())
	assert.False(t, MirrorPredicate(FixedAlliance(AllianceBlue))())
	assert.False(t, MirrorPredicate(FixedAlliance(AllianceUnknown))())
	assert.False(t, MirrorPredicate(nil)())
}

func TestFollowerBindingDirect(t *testing.T) {
	r := newRig(t)
	b, err := NewFollowerBinding(r.drive, FixedAlliance(AllianceBlue), FollowerOptions{})
	require.NoError(t, err)

	assert.Equal(t, r.drive, b.Requirement)
	assert.True(t, b.Requirement.Active())
	assert.Equal(t, 4.5, b.Config.MaxModuleSpeed)
	assert.Equal(t, 0.42, b.Config.DriveBaseRadiusM)
	assert.Equal(t, 0.1, b.Config.TranslationPID.Kp)
	assert.Equal(t, 0.1, b.Config.RotationPID.Kp)

	b.Output(kinematics.ChassisVelocity{Vx: 1})
	assert.Equal(t, kinematics.ChassisVelocity{Vx: 1}, b.SpeedsSupplier())
	for _, m := range r.modules {
		assert.False(t, m.openLoop)
		assert.Equal(t, 1, m.commands)
	}

	want := kinematics.NewPose2D(1, 2, kinematics.Degrees(30))
	b.ResetPose(want)
	got := b.PoseSupplier()
	assert.InDelta(t, 1, got.X(), 1e-9)
	assert.InDelta(t, 30, got.Heading.Degrees(), 1e-9)
}

func TestFollowerBindingBlended(t *testing.T) {
	r := newRig(t)

	var captured []kinematics.ChassisVelocity
	b, err := NewFollowerBinding(r.drive, FixedAlliance(AllianceRed), FollowerOptions{
		Blended: true,
		Output:  func(v kinematics.ChassisVelocity) { captured = append(captured, v) },
	})
	require.NoError(t, err)

	assert.Equal(t, InactiveTarget{}, b.Requirement)
	assert.False(t, b.Requirement.Active())
	assert.True(t, b.ShouldMirror())

	b.Output(kinematics.ChassisVelocity{Vy: 0.7})
	require.Len(t, captured, 1)
	for _, m := range r.modules {
		assert.Zero(t, m.commands)
	}
}

func TestFollowerBindingBlendedNeedsOutput(t *testing.T) {
	r := newRig(t)
	_, err := NewFollowerBinding(r.drive, nil, FollowerOptions{Blended: true})
	assert.Error(t, err)
}

func TestFollowerBindingValidate(t *testing.T) {
	r := newRig(t)
	cfg := DefaultFollowerConfig(0, 0.4)
	_, err := NewFollowerBinding(r.drive, nil, FollowerOptions{Config: &cfg})
	assert.ErrorContains(t, err, "max module speed")

	_, err = NewFollowerBinding(nil, nil, FollowerOptions{})
	assert.Error(t, err)

	assert.Error(t, FollowerBinding{}.Validate())
}
