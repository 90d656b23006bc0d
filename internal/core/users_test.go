package core

import (
	"context"
	"errors"
	"testing"

	"portflow/pkg/domain"
)

func validUser() UserInput {
	return UserInput{Email: "k@port.ma", Password: "Secret#2024", FullName: "Karim", Role: "operator", TeamID: "2"}
}

func TestValidatePassword(t *testing.T) {
	cases := map[string]bool{
		"Secret#2024": true,
		"abc!1defg":   true,
		"short#1":     false,
		"NoDigits!!":  false,
		"NoSymbol123": false,
		"éééééé1x":    true,
	}
	for password, ok := range cases {
		err := ValidatePassword(password)
		if (err == nil) != ok {
			t.Fatalf("password %q: expected ok=%v got %v", password, ok, err)
		}
	}
}

func TestCreateUserWorkflow(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	svc, store := newTestService(t, WithIdentityDirectory(dir))

	id, err := svc.CreateUser(ctx, validUser())
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	user, err := svc.GetUser(ctx, id)
	if err != nil || user["full_name"] != "Karim" {
		t.Fatalf("expected user row, got %+v %v", user, err)
	}
	assignments, _ := store.List(ctx, domain.TableTeamAssignments, domain.Query{Filters: []domain.Filter{domain.Eq("user_id", id)}})
	if len(assignments) != 1 || assignments[0]["zone_id"] != "2" || assignments[0]["status"] != "online" {
		t.Fatalf("expected online assignment, got %+v", assignments)
	}
	if dir.users[id].Password != "Secret#2024" {
		t.Fatalf("expected identity created with password")
	}
	users, err := svc.ListUsers(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("list users %v %d", err, len(users))
	}
}

func TestCreateUserValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, WithIdentityDirectory(newFakeDirectory()))

	missing := validUser()
	missing.TeamID = ""
	if _, err := svc.CreateUser(ctx, missing); !domain.IsValidation(err) || err.Error() != "all fields are required, including team_id" {
		t.Fatalf("expected missing field error, got %v", err)
	}
	weak := validUser()
	weak.Password = "password"
	if _, err := svc.CreateUser(ctx, weak); !domain.IsValidation(err) {
		t.Fatalf("expected password error, got %v", err)
	}

	dir := newFakeDirectory()
	dir.createErr = errors.New("email already registered")
	rejecting, _ := newTestService(t, WithIdentityDirectory(dir))
	if _, err := rejecting.CreateUser(ctx, validUser()); !domain.IsValidation(err) || err.Error() != "email already registered" {
		t.Fatalf("expected identity rejection as validation error, got %v", err)
	}

	bare, _ := newTestService(t)
	if _, err := bare.CreateUser(ctx, validUser()); !errors.Is(err, ErrIdentityUnavailable) {
		t.Fatalf("expected identity unavailable, got %v", err)
	}
}

func TestCreateUserCompensates(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	store := &failingStore{Store: newMemory(), failInsert: domain.TableTeamAssignments}
	svc := NewService(store, WithIdentityDirectory(dir))

	_, err := svc.CreateUser(ctx, validUser())
	if err == nil || domain.IsValidation(err) {
		t.Fatalf("expected internal error, got %v", err)
	}
	users, _ := store.List(ctx, domain.TableUsers, domain.Query{})
	if len(users) != 0 {
		t.Fatalf("expected users row removed, got %+v", users)
	}
	if len(dir.users) != 0 || len(dir.deleted) != 1 {
		t.Fatalf("expected identity removed, got %+v deleted=%v", dir.users, dir.deleted)
	}

	userFail := &failingStore{Store: newMemory(), failInsert: domain.TableUsers}
	dir2 := newFakeDirectory()
	svc2 := NewService(userFail, WithIdentityDirectory(dir2))
	if _, err := svc2.CreateUser(ctx, validUser()); err == nil {
		t.Fatalf("expected users insert failure")
	}
	if len(dir2.users) != 0 {
		t.Fatalf("expected identity compensated")
	}
}

func TestUpdateAndDeleteUser(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	svc, store := newTestService(t, WithIdentityDirectory(dir))
	id, err := svc.CreateUser(ctx, validUser())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	update := UserInput{Email: "karim@port.ma", FullName: "Karim B.", Role: "supervisor", TeamID: "5"}
	if err := svc.UpdateUser(ctx, id, update); err != nil {
		t.Fatalf("update: %v", err)
	}
	user, _ := svc.GetUser(ctx, id)
	if user["email"] != "karim@port.ma" || user["role"] != "supervisor" {
		t.Fatalf("expected updated row, got %+v", user)
	}
	assignments, _ := store.List(ctx, domain.TableTeamAssignments, domain.Query{Filters: []domain.Filter{domain.Eq("user_id", id)}})
	if len(assignments) != 1 || assignments[0]["zone_id"] != "5" {
		t.Fatalf("expected zone moved, got %+v", assignments)
	}
	if dir.users[id].Email != "karim@port.ma" {
		t.Fatalf("expected identity updated")
	}
	if err := svc.UpdateUser(ctx, id, UserInput{Email: "x@port.ma"}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := svc.UpdateUser(ctx, "ghost", update); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := svc.DeleteUser(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetUser(ctx, id); !domain.IsNotFound(err) {
		t.Fatalf("expected user gone, got %v", err)
	}
	assignments, _ = store.List(ctx, domain.TableTeamAssignments, domain.Query{})
	if len(assignments) != 0 || len(dir.users) != 0 {
		t.Fatalf("expected assignments and identity removed")
	}

	dir.deleteErr = errors.New("auth down")
	id2, err := svc.CreateUser(ctx, validUser())
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if err := svc.DeleteUser(ctx, id2); err == nil || domain.IsNotFound(err) {
		t.Fatalf("expected identity failure, got %v", err)
	}
}

func TestDeleteUserWithoutUsersRow(t *testing.T) {
	ctx := context.Background()
	dir := newFakeDirectory()
	svc, _ := newTestService(t, WithIdentityDirectory(dir))

	orphan, err := dir.CreateUser(ctx, domain.Identity{Email: "orphan@port.ma", Password: "Secret#2024"})
	if err != nil {
		t.Fatalf("seed identity: %v", err)
	}
	if err := svc.DeleteUser(ctx, orphan); err != nil {
		t.Fatalf("delete orphan identity: %v", err)
	}
	if _, ok := dir.users[orphan]; ok {
		t.Fatalf("expected identity %s removed", orphan)
	}
	if len(dir.deleted) != 1 || dir.deleted[0] != orphan {
		t.Fatalf("expected one identity delete, got %v", dir.deleted)
	}
}
