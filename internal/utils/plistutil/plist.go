// Package plistutil provides utilities for working with property list files
package plistutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/errors"
	"github.com/deploymenttheory/go-app-walkthrough/internal/utils/fsutil"
	"howett.net/plist"
)

// ReadPlist reads a property list file and returns its contents as a map
func ReadPlist(path string) (map[string]interface{}, error) {
	data, err := fsutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("%w: %s", errors.ErrPathNotAccessible, path)
	}

	var result map[string]interface{}
	decoder := plist.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedFile, err.Error())
	}

	return result, nil
}

// WritePlist writes data as an XML property list
func WritePlist(path string, data map[string]interface{}) error {
	out, err := plist.MarshalIndent(data, plist.XMLFormat, "\t")
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrFileWriteError, err)
	}
	return fsutil.WriteFile(path, out, 0644)
}

// GetValue retrieves a value from the plist using a dot-notation path
func GetValue(data map[string]interface{}, path string) (interface{}, bool) {
	keys := strings.Split(path, ".")
	current := data

	for i, key := range keys {
		val, ok := current[key]
		if !ok {
			return nil, false
		}
		if i == len(keys)-1 {
			return val, true
		}

		next, ok := val.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current = next
	}

	return nil, false
}

// BundleIdentifier returns CFBundleIdentifier from an application bundle's
// Contents/Info.plist.
func BundleIdentifier(appPath string) (string, error) {
	return bundleString(appPath, "CFBundleIdentifier")
}

// BundleExecutable returns the path of the bundle's main executable
func BundleExecutable(appPath string) (string, error) {
	name, err := bundleString(appPath, "CFBundleExecutable")
	if err != nil {
		return "", err
	}
	return filepath.Join(appPath, "Contents", "MacOS", name), nil
}

func bundleString(appPath, key string) (string, error) {
	info, err := ReadPlist(filepath.Join(appPath, "Contents", "Info.plist"))
	if err != nil {
		return "", err
	}

	val, ok := GetValue(info, key)
	if !ok {
		return "", fmt.Errorf("%w: %s missing in %s", errors.ErrInvalidArgument, key, appPath)
	}
	s, ok := val.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s is not a string in %s", errors.ErrInvalidArgument, key, appPath)
	}
	return s, nil
}
