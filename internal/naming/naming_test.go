package naming

import (
	"math/rand"
	"reflect"
	"sync"
	"testing"
)

func TestEntityName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path     string
		expected string
	}{
		{"/users", "User"},
		{"/users/{userId}", "User"},
		{"/users/{userId}/orders", "Order"},
		{"/users/{userId}/orders/{orderId}", "Order"},
		{"/categories", "Category"},
		{"/line-items/{id}", "LineItem"},
		{"/people", "Person"},
		{"/", RootEntity},
		{"/{tenant}", RootEntity},
		{"", RootEntity},
	}
	for _, test := range tests {
		if got := EntityName(test.path); got != test.expected {
			t.Errorf("EntityName(%q) = %q, expected %q", test.path, got, test.expected)
		}
	}
}

func TestSemanticVerb(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"post":   "create",
		"GET":    "read",
		"put":    "replace",
		"Patch":  "modify",
		"delete": "delete",
		"HEAD":   "head",
		"trace":  "trace",
		"Search": "search",
	}
	for verb, expected := range tests {
		if got := SemanticVerb(verb); got != expected {
			t.Errorf("SemanticVerb(%q) = %q, expected %q", verb, got, expected)
		}
	}
}

func TestMethodName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path     string
		verb     string
		expected string
	}{
		{"/users/{userId}", "get", "readUserByUserId"},
		{"/users", "get", "readUser"},
		{"/users", "post", "createUser"},
		{"/users/{userId}", "put", "replaceUserByUserId"},
		{"/users/{userId}", "patch", "modifyUserByUserId"},
		{"/users/{userId}", "delete", "deleteUserByUserId"},
		// nested resources sharing a terminal entity stay distinct
		{"/users/{userId}/orders", "get", "readUserOrderByUserId"},
		{"/orders", "get", "readOrder"},
		{"/users/{userId}/orders/{orderId}", "get", "readUserOrderByUserIdByOrderId"},
		{"/v1/line-items", "get", "readV1LineItem"},
		{"/", "head", "head"},
	}
	for _, test := range tests {
		got := MethodName(test.path, test.verb, PathParameters(test.path))
		if got != test.expected {
			t.Errorf("MethodName(%q, %q) = %q, expected %q", test.path, test.verb, got, test.expected)
		}
	}
}

func TestRequestAndResponseTypeNames(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path, verb, opID string
		request          string
		response         string
	}{
		{"/users", "post", "", "PostUserRequest", "PostUserResponse"},
		{"/users/{userId}", "put", "", "PutUserRequest", "PutUserResponse"},
		{"/users/{userId}", "patch", "updateUser", "UpdateUserRequest", "UpdateUserResponse"},
		{"/users", "get", "", "", "GetUserResponse"},
		{"/users/{userId}", "delete", "", "", "DeleteUserResponse"},
		{"/users", "head", "", "", "HeadUserResponse"},
		{"/users", "OPTIONS", "", "", "OptionsUserResponse"},
		{"/users", "get", "list_users", "", "ListUsersResponse"},
	}
	for _, test := range tests {
		if got := RequestTypeName(test.path, test.verb, test.opID); got != test.request {
			t.Errorf("RequestTypeName(%q, %q, %q) = %q, expected %q", test.path, test.verb, test.opID, got, test.request)
		}
		if got := ResponseTypeName(test.path, test.verb, test.opID); got != test.response {
			t.Errorf("ResponseTypeName(%q, %q, %q) = %q, expected %q", test.path, test.verb, test.opID, got, test.response)
		}
	}
}

func TestQueryParamsTypeName(t *testing.T) {
	t.Parallel()
	if got := QueryParamsTypeName("readUser", true); got != "ReadUserQueryParams" {
		t.Fatalf("query params: got %q", got)
	}
	if got := QueryParamsTypeName("readUser", false); got != "" {
		t.Fatalf("query params without query: got %q", got)
	}
}

func TestPathHelpers(t *testing.T) {
	t.Parallel()
	if got := PathParameters("/users/{userId}/orders/{orderId}"); !reflect.DeepEqual(got, []string{"userId", "orderId"}) {
		t.Errorf("PathParameters: got %v", got)
	}
	if got := PathParameters("/users"); got != nil {
		t.Errorf("PathParameters(static): got %v", got)
	}
	if got := FileStem("/users/{userId}"); got != "users_userid" {
		t.Errorf("FileStem: got %q", got)
	}
	if got := FileStem("/"); got != "root" {
		t.Errorf("FileStem(root): got %q", got)
	}
	if got := ClassName("/users/{userId}"); got != "UsersUserid" {
		t.Errorf("ClassName: got %q", got)
	}
	if got := RoutePattern("/users/{userId}/orders/{orderId}"); got != "/users/:userId/orders/:orderId" {
		t.Errorf("RoutePattern: got %q", got)
	}
}

func TestDerive(t *testing.T) {
	t.Parallel()
	got := Derive(Input{Path: "/users/{userId}", Verb: "get", HasQuery: true})
	want := Names{
		Entity:       "User",
		SemanticVerb: "read",
		Method:       "readUserByUserId",
		Response:     "GetUserResponse",
		QueryParams:  "ReadUserByUserIdQueryParams",
		PathParams:   []string{"userId"},
		FileStem:     "users_userid",
		ClassName:    "UsersUserid",
		Route:        "/users/:userId",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Derive:\n got %+v\nwant %+v", got, want)
	}
}

// Independent callers asking for the same names in any order, from any
// goroutine, must see identical strings.
func TestDerive_Deterministic(t *testing.T) {
	t.Parallel()
	inputs := []Input{
		{Path: "/users/{userId}", Verb: "get"},
		{Path: "/users", Verb: "post", HasQuery: true},
		{Path: "/users/{userId}/orders/{orderId}", Verb: "patch", OperationID: "touchOrder"},
		{Path: "/line-items", Verb: "delete"},
		{Path: "/", Verb: "options"},
	}
	baseline := make([]Names, len(inputs))
	for i, in := range inputs {
		baseline[i] = Derive(in)
	}

	const rounds = 200
	rng := rand.New(rand.NewSource(7))
	orders := make([][]int, rounds)
	for r := range orders {
		orders[r] = rng.Perm(len(inputs))
	}

	var wg sync.WaitGroup
	errs := make(chan string, rounds*len(inputs))
	for _, order := range orders {
		wg.Add(1)
		go func(order []int) {
			defer wg.Done()
			for _, i := range order {
				if got := Derive(inputs[i]); !reflect.DeepEqual(got, baseline[i]) {
					errs <- inputs[i].Verb + " " + inputs[i].Path
				}
			}
		}(order)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("non-deterministic names for %s", e)
	}
}
