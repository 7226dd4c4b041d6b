package api

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceDesc_MatchesProtoFile(t *testing.T) {
	pkg := regexp.MustCompile(`(?m)^package (\w+);`).FindStringSubmatch(ProtoFile)
	svc := regexp.MustCompile(`(?m)^service (\w+) \{`).FindStringSubmatch(ProtoFile)
	require.Len(t, pkg, 2)
	require.Len(t, svc, 2)
	assert.Equal(t, ServiceName, pkg[1]+"."+svc[1])
	assert.Equal(t, "authkeeper.proto", ServiceDesc.Metadata)

	var rpcs []string
	for _, m := range regexp.MustCompile(`rpc (\w+)\(google\.protobuf\.Struct\) returns \(google\.protobuf\.Struct\);`).FindAllStringSubmatch(ProtoFile, -1) {
		rpcs = append(rpcs, m[1])
	}

	var methods []string
	for _, m := range ServiceDesc.Methods {
		methods = append(methods, m.MethodName)
	}
	assert.Equal(t, rpcs, methods)
	assert.Empty(t, ServiceDesc.Streams)
}

func TestServiceDesc_FullMethodNames(t *testing.T) {
	want := map[string]string{
		"Signup":  MethodSignup,
		"Login":   MethodLogin,
		"Reissue": MethodReissue,
		"Logout":  MethodLogout,
		"Ping":    MethodPing,
	}
	for _, m := range ServiceDesc.Methods {
		assert.Equal(t, want[m.MethodName], "/"+ServiceName+"/"+m.MethodName)
	}
}
