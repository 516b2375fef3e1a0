package evstore

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_tag             VARCHAR NOT NULL,
    date                VARCHAR NOT NULL,
    processing_id       VARCHAR PRIMARY KEY,
    prompt_calibration  DOUBLE NOT NULL,
    delayed_calibration DOUBLE NOT NULL,
    muon_veto           BOOLEAN NOT NULL,
    od_threshold        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    row_id            BIGINT PRIMARY KEY,
    evt_index         BIGINT NOT NULL,
    x                 DOUBLE,
    y                 DOUBLE,
    z                 DOUBLE,
    r                 DOUBLE,
    position_valid    BOOLEAN NOT NULL,
    fired             INTEGER NOT NULL,
    od_multiplicity   INTEGER NOT NULL,
    od_fired          BOOLEAN NOT NULL,
    charge            DOUBLE,
    charge_norm       DOUBLE,
    charge_norm_od    DOUBLE,
    charge_norm_id    DOUBLE,
    trigger_time      DOUBLE,
    trigger_time_diff DOUBLE,
    prompt_energy     DOUBLE,
    delayed_energy    DOUBLE
);

CREATE TABLE IF NOT EXISTS hit_timing (
    event_row         BIGINT NOT NULL,
    position          INTEGER NOT NULL,
    tof               DOUBLE,
    rise_time         DOUBLE,
    rise_time_diff    DOUBLE,
    rise_time_aligned DOUBLE,
    PRIMARY KEY (event_row, position)
);

CREATE TABLE IF NOT EXISTS coincidences (
    parent          BIGINT NOT NULL,
    daughter        BIGINT NOT NULL,
    parent_energy   DOUBLE NOT NULL,
    daughter_energy DOUBLE NOT NULL,
    delay           DOUBLE NOT NULL,
    distance        DOUBLE
);
`
