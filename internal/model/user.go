package model

import "time"

// Role 用户角色
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleDriver  Role = "driver"
	RoleGuest   Role = "guest"
)

// Permission 权限
type Permission string

const (
	PermRead        Permission = "read"
	PermCreate      Permission = "create"
	PermUpdate      Permission = "update"
	PermDelete      Permission = "delete"
	PermMap         Permission = "map"
	PermManageUsers Permission = "manage_users"
)

// RolePermissions role to permission table
var RolePermissions = map[Role][]Permission{
	RoleAdmin:   {PermRead, PermCreate, PermUpdate, PermDelete, PermMap, PermManageUsers},
	RoleManager: {PermRead, PermCreate, PermUpdate, PermMap},
	RoleDriver:  {PermRead, PermUpdate, PermMap},
	RoleGuest:   {PermRead, PermMap},
}

// HasPermission 检查角色权限
func (r Role) HasPermission(p Permission) bool {
	for _, granted := range RolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

// SeesWholeFleet admins see every vehicle, everyone else only their assignments
func (r Role) SeesWholeFleet() bool {
	return r == RoleAdmin
}

// User 用户
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Permissions of the user's role
func (u *User) Permissions() []Permission {
	return RolePermissions[u.Role]
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=3"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token       string       `json:"token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        User         `json:"user"`
	Permissions []Permission `json:"permissions"`
}

// Principal is the authenticated caller attached to a request
type Principal struct {
	UserID   string
	Username string
	Role     Role
}
