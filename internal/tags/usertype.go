package tags

// UserType is the chat-wide role carried by the user-type tag.
type UserType int

const (
	Normal UserType = iota
	Moderator
	GlobalMod
	Admin
	Staff
)

var userTypes = map[string]UserType{
	"":           Normal,
	"mod":        Moderator,
	"global_mod": GlobalMod,
	"admin":      Admin,
	"staff":      Staff,
}

func (u UserType) String() string {
	switch u {
	case Moderator:
		return "mod"
	case GlobalMod:
		return "global_mod"
	case Admin:
		return "admin"
	case Staff:
		return "staff"
	default:
		return "normal"
	}
}
