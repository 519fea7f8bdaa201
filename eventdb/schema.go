// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

const eventTableSchema = `
create table if not exists event (
	seq integer primary key,
	epoch integer not null,
	name text not null,
	subject text not null,
	fields text
);

CREATE INDEX if not exists epochIndex on event(epoch);
CREATE INDEX if not exists nameIndex on event(name);
CREATE INDEX if not exists subjectIndex on event(subject);
`
