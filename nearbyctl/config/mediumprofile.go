/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/bourdakos1/nearby-1/nearbyctl/nbutil"
)

type MediumProfileMgr struct {
	profiles map[string]*MediumProfile
}

type MediumType int

// A medium profile names the BLE medium a command runs against.
type MediumProfile struct {
	Name       string     `json:"MyName"`
	Type       MediumType `json:"MyType"`
	ConnString string     `json:"MyConnString"`
}

func (p *MediumProfile) String() string {
	return fmt.Sprintf("name=%s type=%s connstring=%s",
		p.Name, MediumTypeToString(p.Type), p.ConnString)
}

const (
	MEDIUM_TYPE_NONE MediumType = iota
	MEDIUM_TYPE_NATIVE
	MEDIUM_TYPE_MEM
)

var mediumTypeNameMap = map[MediumType]string{
	MEDIUM_TYPE_NATIVE: "native",
	MEDIUM_TYPE_MEM:    "mem",
	MEDIUM_TYPE_NONE:   "???",
}

func MediumTypeToString(mt MediumType) string {
	return mediumTypeNameMap[mt]
}

func MediumTypeFromString(s string) (MediumType, error) {
	for k, v := range mediumTypeNameMap {
		if s == v {
			return k, nil
		}
	}

	return MediumType(0), errors.Errorf("invalid medium type: %s", s)
}

func (mt *MediumType) MarshalJSON() ([]byte, error) {
	return json.Marshal(MediumTypeToString(*mt))
}

func (mt *MediumType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	var err error
	*mt, err = MediumTypeFromString(s)
	if err != nil {
		*mt = MEDIUM_TYPE_NONE
	}
	return nil
}

// Connection string settings for a native medium.
type NativeConnCfg struct {
	CtlrName string
	HciIdx   int
}

// ParseNativeConnString decodes a "key=value,key=value" connection
// string.  Recognized keys: ctlr, hci.
func ParseNativeConnString(cs string) (NativeConnCfg, error) {
	nc := NativeConnCfg{
		CtlrName: "default",
	}

	if cs == "" {
		return nc, nil
	}

	for _, part := range strings.Split(cs, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nc, errors.Errorf(
				"invalid connstring element: %s", part)
		}

		switch kv[0] {
		case "ctlr":
			nc.CtlrName = kv[1]

		case "hci":
			idx, err := cast.ToIntE(kv[1])
			if err != nil {
				return nc, errors.Errorf("invalid hci index: %s", kv[1])
			}
			nc.HciIdx = idx

		default:
			return nc, errors.Errorf("unknown connstring key: %s", kv[0])
		}
	}

	return nc, nil
}

func NewMediumProfileMgr() (*MediumProfileMgr, error) {
	mpm := &MediumProfileMgr{
		profiles: map[string]*MediumProfile{},
	}

	if err := mpm.Init(); err != nil {
		return nil, err
	}

	return mpm, nil
}

func mediumProfileCfgFilename() (string, error) {
	dir, err := homedir.Dir()
	if err != nil {
		return "", errors.WithStack(err)
	}

	return filepath.Join(dir, nbutil.ToolInfo.CfgFilename), nil
}

func (mpm *MediumProfileMgr) Init() error {
	filename, err := mediumProfileCfgFilename()
	if err != nil {
		return err
	}

	log.Debugf("Reading medium profiles from %s", filename)
	blob, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		} else {
			return errors.WithStack(err)
		}
	}

	var profiles []*MediumProfile
	if err := json.Unmarshal(blob, &profiles); err != nil {
		return errors.Errorf("error reading medium profile config (%s): %s",
			filename, err.Error())
	}

	for _, p := range profiles {
		mpm.profiles[p.Name] = p
	}

	return nil
}

func SortMediumProfs(mps []*MediumProfile) []*MediumProfile {
	out := make([]*MediumProfile, 0, len(mps))
	out = append(out, mps...)

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out
}

func (mpm *MediumProfileMgr) GetMediumProfileList() ([]*MediumProfile,
	error) {

	log.Debugf("Getting list of medium profiles")

	mpList := make([]*MediumProfile, 0, len(mpm.profiles))
	for _, p := range mpm.profiles {
		mpList = append(mpList, p)
	}

	return SortMediumProfs(mpList), nil
}

func (mpm *MediumProfileMgr) save() error {
	list, _ := mpm.GetMediumProfileList()
	b, err := json.MarshalIndent(list, "", "    ")
	if err != nil {
		return errors.WithStack(err)
	}

	filename, err := mediumProfileCfgFilename()
	if err != nil {
		return err
	}

	err = os.WriteFile(filename, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (mpm *MediumProfileMgr) DeleteMediumProfile(name string) error {
	if mpm.profiles[name] == nil {
		return errors.Errorf("medium profile \"%s\" doesn't exist", name)
	}

	delete(mpm.profiles, name)

	return mpm.save()
}

func (mpm *MediumProfileMgr) AddMediumProfile(mp *MediumProfile) error {
	mpm.profiles[mp.Name] = mp

	return mpm.save()
}

func (mpm *MediumProfileMgr) GetMediumProfile(pName string) (
	*MediumProfile, error) {

	p := mpm.profiles[pName]
	if p == nil {
		return nil, errors.Errorf("medium profile \"%s\" doesn't exist",
			pName)
	}

	return p, nil
}

func NewMediumProfile() *MediumProfile {
	return &MediumProfile{}
}

var globalMediumProfileMgr *MediumProfileMgr

func GlobalMediumProfileMgr() *MediumProfileMgr {
	if globalMediumProfileMgr == nil {
		panic("medium profile manager not initialized")
	}
	return globalMediumProfileMgr
}

func InitGlobalMediumProfileMgr() error {
	if globalMediumProfileMgr != nil {
		return errors.New("medium profile manager initialized twice")
	}

	var err error
	globalMediumProfileMgr, err = NewMediumProfileMgr()
	if err != nil {
		return err
	}

	return nil
}
