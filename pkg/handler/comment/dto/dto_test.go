package dto

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestPostIDs_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantPresent bool
		wantValues  []int
	}{
		{name: "数字", body: `{"post_ids": 5}`, wantPresent: true, wantValues: []int{5}},
		{name: "数字字符串", body: `{"post_ids": "7"}`, wantPresent: true, wantValues: []int{7}},
		{name: "数组", body: `{"post_ids": [1, "2", "x"]}`, wantPresent: true, wantValues: []int{1, 2}},
		{name: "零也算出现", body: `{"post_ids": 0}`, wantPresent: true, wantValues: []int{0}},
		{name: "无法解析的字符串", body: `{"post_ids": "abc"}`, wantPresent: true, wantValues: nil},
		{name: "null 视为缺失", body: `{"post_ids": null}`, wantPresent: false},
		{name: "字段缺失", body: `{}`, wantPresent: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req UpdateRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if req.PostIDs.Present != tt.wantPresent {
				t.Errorf("Present = %v, want %v", req.PostIDs.Present, tt.wantPresent)
			}
			if !reflect.DeepEqual(req.PostIDs.Values, tt.wantValues) {
				t.Errorf("Values = %v, want %v", req.PostIDs.Values, tt.wantValues)
			}
		})
	}
}

func TestAuthorField_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantNil  bool
		wantName string
		wantErr  bool
	}{
		{name: "对象", body: `{"author": {"name": "鱼", "email": "a@b.c"}}`, wantName: "鱼"},
		{name: "序列化字符串", body: `{"author": "{\"name\":\"鱼\",\"email\":\"a@b.c\"}"}`, wantName: "鱼"},
		{name: "空字符串", body: `{"author": ""}`, wantNil: true},
		{name: "缺失", body: `{}`, wantNil: true},
		{name: "非法 JSON 字符串", body: `{"author": "not json"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CreateRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if tt.wantNil {
				if req.Author.Value != nil {
					t.Errorf("expected nil author, got %+v", req.Author.Value)
				}
				return
			}
			if req.Author.Value == nil || req.Author.Value.Name != tt.wantName {
				t.Errorf("author = %+v, want name %s", req.Author.Value, tt.wantName)
			}
		})
	}
}
