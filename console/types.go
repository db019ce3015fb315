// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package console

import "encoding/json"

// Timestamps are kept as the server's RFC 3339 strings; several are
// empty for records that never had the event (an account that never
// logged in).

// PaginationMeta accompanies every paginated list.
type PaginationMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// --- Authentication ---

// AdminUser is an operator account.
type AdminUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	IsAdmin     bool   `json:"is_admin"`
	Disabled    bool   `json:"disabled"`
	CreatedAt   string `json:"created_at"`
	LastLoginAt string `json:"last_login_at"`
}

// AuthSession identifies a server-side session.
type AuthSession struct {
	ID        string `json:"id"`
	ExpiresAt string `json:"expires_at"`
}

// LoginResponse answers admin login, bootstrap and passkey sign-in.
type LoginResponse struct {
	User    AdminUser   `json:"user"`
	Session AuthSession `json:"session"`
}

// SessionResponse is the current admin session with its CSRF token.
type SessionResponse struct {
	User      AdminUser   `json:"user"`
	Session   AuthSession `json:"session"`
	CSRFToken string      `json:"csrf_token"`
}

// BootstrapStatus reports whether the first admin may still be created.
type BootstrapStatus struct {
	AdminCount   int  `json:"admin_count"`
	CanBootstrap bool `json:"can_bootstrap"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// --- Passkeys ---

// PasskeySummary describes a registered passkey.
type PasskeySummary struct {
	CredentialID   string   `json:"credential_id"`
	Label          string   `json:"label"`
	CreatedAt      string   `json:"created_at"`
	LastUsedAt     string   `json:"last_used_at"`
	AAGUID         string   `json:"aaguid"`
	BackupEligible bool     `json:"backup_eligible"`
	BackupState    bool     `json:"backup_state"`
	Transports     []string `json:"transports"`
}

// PasskeyList is the response of the passkey listing.
type PasskeyList struct {
	Passkeys []PasskeySummary `json:"passkeys"`
}

// PasskeyRegisterOptionsRequest asks for creation options.
type PasskeyRegisterOptionsRequest struct {
	Label            string `json:"label,omitempty"`
	ResidentKey      string `json:"resident_key,omitempty"`
	UserVerification string `json:"user_verification,omitempty"`
}

// PasskeyOptions wraps ceremony options. PublicKey is decoded with
// webauthn.ParseCreationOptions or webauthn.ParseRequestOptions.
type PasskeyOptions struct {
	PublicKey json.RawMessage `json:"publicKey"`
}

// PasskeyRegistered confirms a stored passkey.
type PasskeyRegistered struct {
	CredentialID string `json:"credential_id"`
	Label        string `json:"label"`
	CreatedAt    string `json:"created_at"`
}

// --- Player accounts ---

// UserAccount is a player's console account, keyed by commander.
type UserAccount struct {
	ID          string `json:"id"`
	CommanderID int64  `json:"commander_id"`
	Disabled    bool   `json:"disabled"`
	CreatedAt   string `json:"created_at"`
	LastLoginAt string `json:"last_login_at"`
}

// PlayerLoginResponse answers a player login.
type PlayerLoginResponse struct {
	User    UserAccount `json:"user"`
	Session AuthSession `json:"session"`
}

type playerLoginRequest struct {
	CommanderID int64  `json:"commander_id"`
	Password    string `json:"password"`
}

// MeCommander is the commander linked to the signed-in principal.
type MeCommander struct {
	CommanderID int64  `json:"commander_id"`
	Name        string `json:"name"`
	Level       int    `json:"level"`
}

// --- Registration ---

// RegistrationChallenge is a created challenge. Production servers
// deliver the PIN in-game only; development servers may echo it here.
type RegistrationChallenge struct {
	ChallengeID string `json:"challenge_id"`
	PIN         string `json:"pin,omitempty"`
	ExpiresAt   string `json:"expires_at"`
}

// ChallengeStatus is the lifecycle state of a registration challenge.
type ChallengeStatus string

const (
	ChallengePending  ChallengeStatus = "pending"
	ChallengeConsumed ChallengeStatus = "consumed"
	ChallengeExpired  ChallengeStatus = "expired"
)

// RegistrationStatus is the status answer for a challenge.
type RegistrationStatus struct {
	Status ChallengeStatus `json:"status"`
}

type registrationRequest struct {
	CommanderID int64  `json:"commander_id"`
	Password    string `json:"password"`
}

type verifyRequest struct {
	PIN string `json:"pin"`
}

// --- Authorization ---

// PermissionEntry grants operations on one resource key.
type PermissionEntry struct {
	Key       string `json:"key"`
	ReadSelf  bool   `json:"read_self"`
	ReadAny   bool   `json:"read_any"`
	WriteSelf bool   `json:"write_self"`
	WriteAny  bool   `json:"write_any"`
}

// MePermissions is the effective policy of the current principal.
type MePermissions struct {
	Roles       []string          `json:"roles"`
	Permissions []PermissionEntry `json:"permissions"`
}

// RoleSummary describes a role.
type RoleSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updated_at"`
	UpdatedBy   string `json:"updated_by"`
}

// RoleList lists roles.
type RoleList struct {
	Roles []RoleSummary `json:"roles"`
}

// PermissionSummary describes a resource key.
type PermissionSummary struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

// PermissionList lists resource keys.
type PermissionList struct {
	Permissions []PermissionSummary `json:"permissions"`
}

// RolePolicy is the grant table of a role, or of the player policy.
type RolePolicy struct {
	Role          string            `json:"role"`
	Permissions   []PermissionEntry `json:"permissions"`
	AvailableKeys []string          `json:"available_keys"`
	UpdatedAt     string            `json:"updated_at"`
	UpdatedBy     string            `json:"updated_by"`
}

type policyUpdate struct {
	Permissions []PermissionEntry `json:"permissions"`
}

// AccountRoles are the roles held by an admin account.
type AccountRoles struct {
	AccountID string   `json:"account_id"`
	Roles     []string `json:"roles"`
}

type rolesUpdate struct {
	Roles []string `json:"roles"`
}

// OverrideMode is allow or deny.
type OverrideMode string

const (
	OverrideAllow OverrideMode = "allow"
	OverrideDeny  OverrideMode = "deny"
)

// AccountOverride adjusts one key for one account on top of its roles.
type AccountOverride struct {
	Key       string       `json:"key"`
	Mode      OverrideMode `json:"mode"`
	ReadSelf  bool         `json:"read_self"`
	ReadAny   bool         `json:"read_any"`
	WriteSelf bool         `json:"write_self"`
	WriteAny  bool         `json:"write_any"`
}

// AccountOverrides are the overrides of one account.
type AccountOverrides struct {
	AccountID string            `json:"account_id"`
	Overrides []AccountOverride `json:"overrides"`
}

type overridesUpdate struct {
	Overrides []AccountOverride `json:"overrides"`
}

// --- Admin users ---

// AdminUserList is one page of operator accounts.
type AdminUserList struct {
	Users []AdminUser    `json:"users"`
	Meta  PaginationMeta `json:"meta"`
}

type adminUserResponse struct {
	User AdminUser `json:"user"`
}

// AdminUserUpdate changes an operator account. Nil fields are left
// unchanged.
type AdminUserUpdate struct {
	Username *string `json:"username,omitempty"`
	Disabled *bool   `json:"disabled,omitempty"`
}

type passwordSetRequest struct {
	Password string `json:"password"`
}

// --- Server ---

// ServerStatus is the game server's run state.
type ServerStatus struct {
	Running     bool   `json:"running"`
	Accepting   bool   `json:"accepting"`
	ClientCount int    `json:"client_count"`
	UptimeHuman string `json:"uptime_human"`
	UptimeSec   int64  `json:"uptime_sec"`
}

// ServerMetrics are live counters of the game server.
type ServerMetrics struct {
	ClientCount   int     `json:"client_count"`
	HandlerErrors int64   `json:"handler_errors"`
	PPS           float64 `json:"pps"`
	QueueBlocks   int64   `json:"queue_blocks"`
	QueueMax      int64   `json:"queue_max"`
	WriteErrors   int64   `json:"write_errors"`
}

// ServerUptime is the server's uptime.
type ServerUptime struct {
	UptimeHuman string `json:"uptime_human"`
	UptimeSec   int64  `json:"uptime_sec"`
}

// Connection is one connected game client.
type Connection struct {
	CommanderID   int64  `json:"commander_id"`
	ConnectedAt   string `json:"connected_at"`
	Hash          int64  `json:"hash"`
	RemoteAddress string `json:"remote_address"`
}

// Maintenance is the maintenance-mode switch.
type Maintenance struct {
	Enabled bool `json:"enabled"`
}

// --- Players ---

// PlayerSummary is a row of the player list.
type PlayerSummary struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"account_id"`
	Name      string `json:"name"`
	Level     int    `json:"level"`
	Banned    bool   `json:"banned"`
	Online    bool   `json:"online"`
	LastLogin string `json:"last_login"`
}

// PlayerDetail is a single player.
type PlayerDetail struct {
	PlayerSummary
	Exp int64 `json:"exp"`
}

// PlayerList is one page of players.
type PlayerList struct {
	Players []PlayerSummary `json:"players"`
	Meta    PaginationMeta  `json:"meta"`
}

// PlayerQuery filters the player list.
type PlayerQuery struct {
	Page
	Sort     string
	Filter   string
	MinLevel int
	Name     string
}

// PlayerResource is one currency balance.
type PlayerResource struct {
	ResourceID int64  `json:"resource_id"`
	Name       string `json:"name"`
	Amount     int64  `json:"amount"`
}

// PlayerResources lists a player's balances.
type PlayerResources struct {
	Resources []PlayerResource `json:"resources"`
}

// ResourceUpdate sets one balance.
type ResourceUpdate struct {
	ResourceID int64 `json:"resource_id"`
	Amount     int64 `json:"amount"`
}

// PlayerShip is an owned ship.
type PlayerShip struct {
	OwnedID int64  `json:"owned_id"`
	ShipID  int64  `json:"ship_id"`
	Name    string `json:"name"`
	Level   int    `json:"level"`
	Rarity  int    `json:"rarity"`
	SkinID  int64  `json:"skin_id"`
}

// PlayerShips lists owned ships.
type PlayerShips struct {
	Ships []PlayerShip `json:"ships"`
}

// PlayerShipUpdate changes an owned ship.
type PlayerShipUpdate struct {
	Level int `json:"level"`
}

// PlayerItem is an inventory stack.
type PlayerItem struct {
	ItemID int64  `json:"item_id"`
	Name   string `json:"name"`
	Count  int64  `json:"count"`
}

// PlayerItems lists inventory.
type PlayerItems struct {
	Items []PlayerItem `json:"items"`
}

// PlayerSkin is an owned skin.
type PlayerSkin struct {
	SkinID    int64  `json:"skin_id"`
	Name      string `json:"name"`
	ExpiresAt string `json:"expires_at"`
}

// PlayerSkins lists owned skins.
type PlayerSkins struct {
	Skins []PlayerSkin `json:"skins"`
}

// MailAttachment is an item attached to mail.
type MailAttachment struct {
	Type     int   `json:"type"`
	ItemID   int64 `json:"item_id"`
	Quantity int64 `json:"quantity"`
}

// Mail is an in-game mail.
type Mail struct {
	Title        string           `json:"title"`
	Body         string           `json:"body"`
	CustomSender string           `json:"custom_sender,omitempty"`
	Attachments  []MailAttachment `json:"attachments"`
}

// ItemGrant adds items to an inventory.
type ItemGrant struct {
	ItemID int64 `json:"item_id"`
	Amount int64 `json:"amount"`
}

// SkinGrant gives a skin, optionally time limited.
type SkinGrant struct {
	SkinID    int64  `json:"skin_id"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Ban restricts a player. Exactly one of the fields is normally set.
type Ban struct {
	DurationSec   int64  `json:"duration_sec,omitempty"`
	LiftTimestamp string `json:"lift_timestamp,omitempty"`
	Permanent     bool   `json:"permanent,omitempty"`
}

// Kick disconnects a player with a reason code.
type Kick struct {
	Reason int `json:"reason,omitempty"`
}

// KickResult reports whether the player was online.
type KickResult struct {
	Disconnected bool `json:"disconnected"`
}

// ProfileUpdate changes a player's name or level. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	Name  *string `json:"name,omitempty"`
	Level *int    `json:"level,omitempty"`
}

// --- Catalog ---

// ShipSummary is a catalog ship.
type ShipSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Rarity      int    `json:"rarity"`
	Star        int    `json:"star"`
	Type        int    `json:"type"`
	Nationality int    `json:"nationality"`
	PoolID      int    `json:"pool_id"`
	BuildTime   int    `json:"build_time"`
}

// ShipList is a page of catalog ships.
type ShipList struct {
	Ships []ShipSummary  `json:"ships"`
	Meta  PaginationMeta `json:"meta"`
}

// ShipQuery filters the ship catalog.
type ShipQuery struct {
	Page
	Rarity      int
	Type        int
	Nationality int
	Name        string
}

// SkinSummary is a catalog skin.
type SkinSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ShipID   int64  `json:"ship_id"`
	ShipName string `json:"ship_name"`
	ShopID   int64  `json:"shop_id"`
	Painting string `json:"painting"`
}

// SkinList is a page of catalog skins.
type SkinList struct {
	Skins []SkinSummary  `json:"skins"`
	Meta  PaginationMeta `json:"meta"`
}

// ShipSkin is a skin available to one ship.
type ShipSkin struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShipGroup int64  `json:"ship_group"`
}

// ShipSkinList lists the skins of one ship.
type ShipSkinList struct {
	Skins []ShipSkin     `json:"skins"`
	Meta  PaginationMeta `json:"meta"`
}

// ItemSummary is a catalog item.
type ItemSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Rarity      int    `json:"rarity"`
	ShopID      int64  `json:"shop_id"`
	Type        int    `json:"type"`
	VirtualType int    `json:"virtual_type"`
}

// ItemList is a page of catalog items.
type ItemList struct {
	Items []ItemSummary  `json:"items"`
	Meta  PaginationMeta `json:"meta"`
}

// --- Notices and activities ---

// Notice is an in-game announcement.
type Notice struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	BtnTitle   string `json:"btn_title"`
	Icon       int    `json:"icon"`
	TagType    int    `json:"tag_type"`
	TimeDesc   string `json:"time_desc"`
	TitleImage string `json:"title_image"`
	Track      string `json:"track"`
	Version    string `json:"version"`
}

// NoticeList is a page of notices.
type NoticeList struct {
	Notices []Notice       `json:"notices"`
	Meta    PaginationMeta `json:"meta"`
}

// ActivityAllowlist is the set of enabled activity ids.
type ActivityAllowlist struct {
	IDs []int64 `json:"ids"`
}

// --- Exchange codes ---

// ExchangeReward is one reward of a code.
type ExchangeReward struct {
	ID    int64 `json:"id"`
	Type  int   `json:"type"`
	Count int64 `json:"count"`
}

// ExchangeCode is a redeemable gift code.
type ExchangeCode struct {
	ID       int64            `json:"id,omitempty"`
	Code     string           `json:"code"`
	Platform string           `json:"platform"`
	Quota    int              `json:"quota"`
	Rewards  []ExchangeReward `json:"rewards"`
}

// ExchangeCodeList is a page of codes.
type ExchangeCodeList struct {
	Codes []ExchangeCode `json:"codes"`
	Meta  PaginationMeta `json:"meta"`
}

// ExchangeCodeRedeem is one redemption.
type ExchangeCodeRedeem struct {
	CommanderID int64  `json:"commander_id"`
	RedeemedAt  string `json:"redeemed_at"`
}

// ExchangeCodeRedeemList is a page of redemptions.
type ExchangeCodeRedeemList struct {
	Redeems []ExchangeCodeRedeem `json:"redeems"`
	Meta    PaginationMeta       `json:"meta"`
}

type redeemRequest struct {
	CommanderID int64 `json:"commander_id"`
}
