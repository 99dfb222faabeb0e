package consts

const (
	MimePrefixImage = "image"
	MimePrefixAudio = "audio"
	MimePrefixVideo = "video"
)

const (
	UserCollection         = "users"
	ConversationCollection = "conversations"
	MessageCollection      = "messages"
)

const (
	DefaultAvatarURL   = "https://ui-avatars.com/api/?name=%s&background=random"
	DefaultMessageSize = 100
	MaxMessagePageSize = 100
	UserListLimit      = 100
	UserSearchLimit    = 20
	AvatarSize         = 256
	MaxUploadSize      = 10 << 20
)

const (
	ContextUserID = "user_id"
	ContextUser   = "user"
	ContextToken  = "token"
)
