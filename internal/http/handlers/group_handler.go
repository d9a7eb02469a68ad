package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/convoy-chat/go-backend/internal/services"
)

type createGroupRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
	Avatar      string `json:"avatar" binding:"max=512"`
}

type updateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Avatar      *string `json:"avatar"`
	Status      *string `json:"status"`
}

type createRoleRequest struct {
	Name  string `json:"name" binding:"required,max=50"`
	Color string `json:"color" binding:"max=16"`
}

type updatePermissionsRequest struct {
	Permissions map[string]bool `json:"permissions" binding:"required"`
}

type assignRoleRequest struct {
	RoleID *string `json:"roleId"`
}

// CreateGroup handles POST /groups. The creator becomes the group owner and
// its first member.
func (h *Handlers) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "a group name is required")
		return
	}

	group, err := h.groupSvc.CreateGroup(c.Request.Context(), userID(c), req.Name, req.Description, req.Avatar)
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not create group")
		}
		return
	}
	ok(c, http.StatusCreated, group)
}

// ListGroups handles GET /groups and returns the caller's groups.
func (h *Handlers) ListGroups(c *gin.Context) {
	groups, err := h.groupSvc.ListGroups(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list groups")
		return
	}
	ok(c, http.StatusOK, groups)
}

// GetGroup handles GET /groups/:groupId. Visibility requires membership.
func (h *Handlers) GetGroup(c *gin.Context) {
	group, err := h.groupSvc.GetGroup(c.Request.Context(), userID(c), c.Param("groupId"))
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load group")
		}
		return
	}
	ok(c, http.StatusOK, group)
}

// UpdateGroup handles PATCH /groups/:groupId. Owner only; absent fields are
// left unchanged.
func (h *Handlers) UpdateGroup(c *gin.Context) {
	var req updateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	group, err := h.groupSvc.UpdateGroup(c.Request.Context(), userID(c), c.Param("groupId"), services.GroupUpdate{
		Name:        req.Name,
		Description: req.Description,
		Avatar:      req.Avatar,
		Status:      req.Status,
	})
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not update group")
		}
		return
	}
	ok(c, http.StatusOK, group)
}

// DeleteGroup handles DELETE /groups/:groupId. Owner only.
func (h *Handlers) DeleteGroup(c *gin.Context) {
	if err := h.groupSvc.DeleteGroup(c.Request.Context(), userID(c), c.Param("groupId")); err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not delete group")
		}
		return
	}
	noContent(c)
}

// ListMembers handles GET /groups/:groupId/members.
func (h *Handlers) ListMembers(c *gin.Context) {
	members, err := h.groupSvc.ListMembers(c.Request.Context(), userID(c), c.Param("groupId"))
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list members")
		}
		return
	}
	ok(c, http.StatusOK, members)
}

// CreateRole handles POST /groups/:groupId/roles. Requires role-management
// permission; a fresh role starts with every permission disabled.
func (h *Handlers) CreateRole(c *gin.Context) {
	var req createRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "a role name is required")
		return
	}

	role, err := h.groupSvc.CreateRole(c.Request.Context(), userID(c), c.Param("groupId"), req.Name, req.Color)
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not create role")
		}
		return
	}
	ok(c, http.StatusCreated, role)
}

// ListRoles handles GET /groups/:groupId/roles.
func (h *Handlers) ListRoles(c *gin.Context) {
	roles, err := h.groupSvc.ListRoles(c.Request.Context(), userID(c), c.Param("groupId"))
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not list roles")
		}
		return
	}
	ok(c, http.StatusOK, roles)
}

// GetRolePermissions handles GET /groups/:groupId/roles/:roleId/permissions.
func (h *Handlers) GetRolePermissions(c *gin.Context) {
	perms, err := h.groupSvc.GetRolePermissions(c.Request.Context(), userID(c), c.Param("groupId"), c.Param("roleId"))
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load permissions")
		}
		return
	}
	ok(c, http.StatusOK, perms)
}

// UpdateRolePermissions handles PATCH /groups/:groupId/roles/:roleId/permissions.
// Unknown permission flags are rejected by the service.
func (h *Handlers) UpdateRolePermissions(c *gin.Context) {
	var req updatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "a permissions object is required")
		return
	}

	perms, err := h.groupSvc.UpdateRolePermissions(c.Request.Context(), userID(c), c.Param("groupId"), c.Param("roleId"), req.Permissions)
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not update permissions")
		}
		return
	}
	ok(c, http.StatusOK, perms)
}

// AssignRole handles PUT /groups/:groupId/members/:userId/role. A null roleId
// clears the member's role.
func (h *Handlers) AssignRole(c *gin.Context) {
	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}

	err := h.groupSvc.AssignRole(c.Request.Context(), userID(c), c.Param("groupId"), c.Param("userId"), req.RoleID)
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not assign role")
		}
		return
	}
	noContent(c)
}
