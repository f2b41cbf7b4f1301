package principal

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleTeacher, ParseRole(""))
	assert.Equal(t, RoleTeacher, ParseRole("student"))
	assert.Equal(t, RoleTeacher, ParseRole("teacher"))
	assert.Equal(t, RoleAdmin, ParseRole(" Admin "))
	assert.Equal(t, RoleSuperAdmin, ParseRole("SUPER_ADMIN"))
}

func TestRoleIsAdmin(t *testing.T) {
	assert.False(t, RoleTeacher.IsAdmin())
	assert.True(t, RoleAdmin.IsAdmin())
	assert.True(t, RoleSuperAdmin.IsAdmin())
}

func TestPrincipalRoundTrip(t *testing.T) {
	p := Principal{SchoolID: snowflake.ID(101), UserID: snowflake.ID(202), Role: RoleAdmin}
	ctx := WithPrincipal(context.Background(), p)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, p, got)

	schoolID, ok := SchoolIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, snowflake.ID(101), schoolID)
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	_, ok = SchoolIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestSchoolIDFromContextStringValue(t *testing.T) {
	ctx := context.WithValue(context.Background(), SchoolContextKey{}, "12345")
	schoolID, ok := SchoolIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, snowflake.ID(12345), schoolID)
}
