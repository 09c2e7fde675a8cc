package spatial

// NoIdentifier marks an absent sound or source identifier. A local sound with
// no owning object uses NoIdentifier as its source identifier and still
// deduplicates against other local plays of the same sound.
const NoIdentifier int16 = -1

// SoundFlags modify the playback request's dedup behavior.
type SoundFlags uint16

const (
	// FlagCannotBeRestarted marks a sound that must never be rewound in place;
	// a new request for the same identity is dropped while the old one plays.
	FlagCannotBeRestarted SoundFlags = 1 << iota

	// FlagDoesNotSelfAbort skips identity dedup entirely; every request
	// spawns its own player.
	FlagDoesNotSelfAbort
)

// ObstructionFlags report how the world geometry sits between the sound and
// the listener.
type ObstructionFlags uint16

const (
	ObstructionWall ObstructionFlags = 1 << iota
	ObstructionMedia
)

// Obstructed reports whether any obstruction applies, switching the
// attenuation model to the obstructed profile table.
func (f ObstructionFlags) Obstructed() bool {
	return f&(ObstructionWall|ObstructionMedia) != 0
}

// StereoParameters describe a non-3D sound placed in the stereo field.
type StereoParameters struct {
	Panning    bool
	GainGlobal float32
	GainLeft   float32
	GainRight  float32
}

// SoundParameters carry everything a playback request needs: identity for
// dedup, placement for the attenuation model, and behavior flags.
type SoundParameters struct {
	Identifier       int16
	SourceIdentifier int16

	// Local sounds play at the listener, with no 3D attenuation.
	Local bool
	Loop  bool

	Pitch float32

	Stereo      StereoParameters
	Location    Vec3
	Obstruction ObstructionFlags
	Behavior    SoundBehavior
	Flags       SoundFlags
}
