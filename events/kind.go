package events

type Kind string

const (
	KindGeneric          Kind = "generic"
	KindRoomMessage      Kind = "room_message"
	KindRoomNotification Kind = "room_notification"
	KindRoomTopicChange  Kind = "room_topic_change"
	KindRoomEnter        Kind = "room_enter"
	KindRoomExit         Kind = "room_exit"

	// Lifecycle kinds are synthesized by the installation controller and are
	// never produced by Parse.
	KindInstalled   Kind = "installed"
	KindUninstalled Kind = "uninstalled"
)

// Family is the super-category a kind belongs to, derived from the kind.
type Family string

const (
	FamilyNone          Family = ""
	FamilyRoomMessaging Family = "room_messaging"
	FamilyRoomVisiting  Family = "room_visiting"
)

func (k Kind) Family() Family {
	switch k {
	case KindRoomMessage, KindRoomNotification:
		return FamilyRoomMessaging
	case KindRoomEnter, KindRoomExit:
		return FamilyRoomVisiting
	default:
		return FamilyNone
	}
}

// KindOf maps a raw discriminator to its kind; unknown values are Generic.
func KindOf(discriminator string) Kind {
	switch Kind(discriminator) {
	case KindRoomMessage, KindRoomNotification, KindRoomTopicChange, KindRoomEnter, KindRoomExit:
		return Kind(discriminator)
	default:
		return KindGeneric
	}
}
